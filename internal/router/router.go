// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// postdeck server. It organizes routes into the versioned JSON API, the
// websocket feed and the unauthenticated operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"postdeck/internal/handlers"
	"postdeck/internal/metrics"
	"postdeck/internal/middleware"
)

// Deps holds what the router wires into its middleware chains. Metrics,
// MetricsHandler and Limiter are optional.
type Deps struct {
	API            *handlers.API
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Limiter        *middleware.RateLimiter
	CORSOrigins    []string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.SecureHeaders)

	// Operational endpoints, no identity.
	r.Get("/health", healthHandler)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	// Websocket feed. Origins are checked by the hub on upgrade.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadIdentity)
		r.Use(middleware.RequireIdentity)
		r.Get("/ws", d.API.Subscribe)
	})

	// JSON API. CORS runs first so preflight requests, which carry no
	// identity headers, are answered.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Content-Type",
				middleware.HeaderUserID,
				middleware.HeaderUserEmail,
				middleware.HeaderUserName,
				middleware.HeaderUserImage,
				middleware.HeaderWorkspaceID,
			},
			ExposedHeaders: []string{"Retry-After", "X-Total-Count"},
			MaxAge:         300,
		}))
		r.Use(middleware.LoadIdentity)
		r.Use(middleware.RequireIdentity)
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		postRoutes(r, d.API)
		boardRoutes(r, d.API)
		formRoutes(r, d.API)

		r.Get("/sync", d.API.SyncSummary)
		r.Get("/sync/{commandID}", d.API.SyncStatus)
	})

	return r
}

// postRoutes mounts posts with their blocks, versions and comment threads.
func postRoutes(r chi.Router, a *handlers.API) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", a.CreatePost)

		r.Route("/{postID}", func(r chi.Router) {
			r.Get("/", a.GetPost)
			r.Delete("/", a.DeletePost)
			r.Get("/activities", a.Activities)
			r.Post("/actions", a.ApplyAction)
			r.Post("/schedule", a.SchedulePost)
			r.Put("/publish-date", a.SetPublishDate)
			commentRoutes(r, a)

			// Blocks
			r.Post("/blocks", a.AddBlock)
			r.Post("/blocks/upload", a.UploadBlock)
			r.Post("/blocks/move", a.MoveBlock)
			r.Route("/blocks/{blockID}", func(r chi.Router) {
				r.Delete("/", a.RemoveBlock)
				r.Put("/current", a.SetCurrentVersion)
				commentRoutes(r, a)

				// Versions
				r.Post("/versions", a.AddVersion)
				r.Post("/versions/upload", a.UploadVersion)
				r.Route("/versions/{versionID}", func(r chi.Router) {
					commentRoutes(r, a)
				})
			})
		})
	})
}

// commentRoutes mounts one comment thread. The scope follows from the
// route parameters present.
func commentRoutes(r chi.Router, a *handlers.API) {
	r.Get("/comments", a.ListComments)
	r.Post("/comments", a.AddComment)
	r.Post("/comments/{commentID}/replies", a.AddReply)
	r.Patch("/comments/{commentID}", a.UpdateComment)
	r.Delete("/comments/{commentID}", a.DeleteComment)
}

// boardRoutes mounts the table view with its drag and fill gestures.
func boardRoutes(r chi.Router, a *handlers.API) {
	r.Route("/boards/{boardID}", func(r chi.Router) {
		r.Get("/rows", a.Rows)
		r.Post("/rows/move", a.MoveRow)

		r.Post("/drag/begin", a.BeginDrag)
		r.Post("/drag/hover", a.Hover)
		r.Post("/drag/drop", a.Drop)
		r.Post("/drag/cancel", a.CancelDrag)

		r.Post("/fill", a.FillColumn)
		r.Post("/fill/begin", a.BeginFill)
		r.Post("/fill/finish", a.FinishFill)
	})
}

// formRoutes mounts the workspace intake forms.
func formRoutes(r chi.Router, a *handlers.API) {
	r.Route("/forms", func(r chi.Router) {
		r.Get("/", a.ListForms)
		r.Post("/", a.CreateForm)
		r.Route("/{formID}", func(r chi.Router) {
			r.Get("/", a.GetForm)
			r.Delete("/", a.DeleteForm)
			r.Post("/fields", a.AddField)
			r.Post("/fields/move", a.MoveField)
			r.Patch("/fields/{fieldID}", a.UpdateField)
			r.Delete("/fields/{fieldID}", a.RemoveField)
		})
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
