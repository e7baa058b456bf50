// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the postdeck server.
// It loads configuration, connects to services, sets up routing, and runs
// the HTTP server next to the realtime hub and the schedule reconciler
// until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"postdeck/internal/board"
	"postdeck/internal/cache"
	"postdeck/internal/config"
	"postdeck/internal/database"
	"postdeck/internal/forms"
	"postdeck/internal/handlers"
	"postdeck/internal/jobs"
	"postdeck/internal/metrics"
	"postdeck/internal/middleware"
	"postdeck/internal/outbox"
	"postdeck/internal/realtime"
	"postdeck/internal/review"
	"postdeck/internal/router"
	"postdeck/internal/storage"
	"postdeck/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("postdeck stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run() error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and run pending migrations.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return err
		}
	}

	// Valkey backs the post cache, realtime fan-out and the reconcile lock.
	valkey, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		return err
	}
	defer valkey.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, metricsHandler := metrics.Setup(reg)

	broker := realtime.NewBroker(valkey, m)

	queue := outbox.New(outbox.Config{
		Workers:     cfg.OutboxWorkers,
		MaxAttempts: cfg.OutboxMaxAttempts,
	},
		outbox.WithMetrics(m),
	)

	// Data stores.
	postStore := store.NewPostStore(db)
	activityStore := store.NewActivityStore(db)
	boardStore := store.NewBoardStore(db)
	formStore := store.NewFormStore(db)

	postCache := cache.NewPostCache(valkey, cache.DefaultPostTTL, m)
	boards := board.NewRegistry(postStore, queue, broker, boardStore, board.WithInvalidator(postCache))
	hub := realtime.NewHub(broker, cfg.CORSOrigins, m,
		realtime.WithTopicCheck(realtime.WorkspaceTopics(boardStore, formStore)),
		realtime.WithObserver(boards.Observe),
	)

	opts := []review.Option{
		review.WithCache(postCache),
		review.WithBoards(boards),
		review.WithBoardDirectory(boardStore),
		review.WithPublisher(broker),
	}

	// Object storage is optional; uploads answer 503 without it.
	files, err := storage.New(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		PublicURL: cfg.S3PublicURL,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return err
	}
	if files != nil {
		if err := files.EnsureBucket(ctx, cfg.S3Region); err != nil {
			return err
		}
		opts = append(opts, review.WithStorage(files))
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, asset uploads disabled")
	}

	posts := review.NewService(postStore, activityStore, opts...)
	formSvc := forms.NewService(formStore, broker)
	reconciler := jobs.NewStatusReconciler(posts, cfg.ReconcileInterval, valkey)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPM > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPM)
		defer limiter.Stop()
	}

	r := router.New(router.Deps{
		API:            handlers.NewAPI(posts, formSvc, boards, queue, hub),
		Metrics:        m,
		MetricsHandler: metricsHandler,
		Limiter:        limiter,
		CORSOrigins:    cfg.CORSOrigins,
	})

	// WriteTimeout must accommodate large multipart uploads.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return reconciler.Run(gctx) })

	// Graceful shutdown: drain connections, then flush queued writes.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := queue.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
