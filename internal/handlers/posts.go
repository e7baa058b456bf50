// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/comments"
	"postdeck/internal/review"
	"postdeck/internal/workflow"
)

// CreatePost creates a draft post at the end of its board.
func (a *API) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ident := caller(r)
	p, err := a.posts.CreatePost(r.Context(), review.NewPost{
		WorkspaceID: ident.WorkspaceID,
		BoardID:     req.BoardID,
		Caption:     req.Caption,
		Format:      req.Format,
		PublishDate: req.PublishDate,
		Platforms:   req.Platforms,
		Pages:       req.Pages,
		Month:       req.Month,
	}, ident.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPost returns one post with its blocks and comments.
func (a *API) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.posts.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePost removes a post and its assets.
func (a *API) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.posts.DeletePost(r.Context(), id, caller(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activities returns the activity feed of a post. The optional limit query
// parameter caps the number of entries.
func (a *API) Activities(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			writeError(w, r, apperr.Invalid("limit", "must be a number"))
			return
		}
	}
	acts, err := a.posts.Activities(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

// ApplyAction runs a review step (submit, approve, request changes, mark
// revised or schedule) against a post.
func (a *API) ApplyAction(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.posts.ApplyAction(r.Context(), id, workflow.Action(req.Action), caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SchedulePost moves an approved post to Scheduled at the requested time,
// or at the first free suggested slot when none is given.
func (a *API) SchedulePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.posts.Schedule(r.Context(), id, req.PublishDate, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetPublishDate changes or clears the publish date of a post.
func (a *API) SetPublishDate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req publishDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.posts.SetPublishDate(r.Context(), id, req.PublishDate, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AddBlock appends a block whose first version points at an existing URL.
func (a *API) AddBlock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_, b, err := a.posts.AddBlock(r.Context(), id, req.File.file(), req.Caption, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// UploadBlock appends a block from a multipart file upload.
func (a *API) UploadBlock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, caption, cleanup, err := readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	_, b, err := a.posts.UploadBlock(r.Context(), id, up, caption, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// RemoveBlock deletes a block with all of its versions.
func (a *API) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	postID, blockID, err := blockParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.posts.RemoveBlock(r.Context(), postID, blockID, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MoveBlock reorders the blocks of a post.
func (a *API) MoveBlock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "postID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, moved, err := a.posts.MoveBlock(r.Context(), id, req.From, req.To, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "post": p})
}

// AddVersion adds a version that points at an existing URL.
func (a *API) AddVersion(w http.ResponseWriter, r *http.Request) {
	postID, blockID, err := blockParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_, v, err := a.posts.AddVersion(r.Context(), postID, blockID, req.File.file(), req.Caption, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// UploadVersion adds a version from a multipart file upload.
func (a *API) UploadVersion(w http.ResponseWriter, r *http.Request) {
	postID, blockID, err := blockParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, caption, cleanup, err := readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	_, v, err := a.posts.UploadVersion(r.Context(), postID, blockID, up, caption, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// SetCurrentVersion selects the canonical version of a block.
func (a *API) SetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	postID, blockID, err := blockParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req currentVersionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.posts.SetCurrentVersion(r.Context(), postID, blockID, req.VersionID, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListComments returns the threads of the scope addressed by the route.
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, scope, err := scopeParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	threads, err := a.posts.ListComments(r.Context(), postID, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(comments.Count(threads)))
	writeJSON(w, http.StatusOK, threads)
}

// AddComment posts a top-level comment. A revision request may move the
// post to Needs Revisions; the response carries the resulting status.
func (a *API) AddComment(w http.ResponseWriter, r *http.Request) {
	a.addComment(w, r, nil)
}

// AddReply posts a reply under the comment in the route.
func (a *API) AddReply(w http.ResponseWriter, r *http.Request) {
	parentID, err := uuidParam(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.addComment(w, r, &parentID)
}

func (a *API) addComment(w http.ResponseWriter, r *http.Request, parentID *uuid.UUID) {
	postID, scope, err := scopeParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ident := caller(r)
	in := comments.Input{
		Author:            ident.UserID,
		AuthorEmail:       ident.Email,
		AuthorImageURL:    ident.ImageURL,
		Text:              req.Text,
		RevisionRequested: req.RevisionRequested,
		Rect:              req.Rect,
	}

	var res review.CommentResult
	if parentID != nil {
		_, res, err = a.posts.AddReply(r.Context(), postID, scope, *parentID, in)
	} else {
		_, res, err = a.posts.AddComment(r.Context(), postID, scope, in)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UpdateComment replaces the text of a comment.
func (a *API) UpdateComment(w http.ResponseWriter, r *http.Request) {
	postID, scope, err := scopeParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := uuidParam(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.posts.UpdateComment(r.Context(), postID, scope, commentID, req.Text, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteComment removes a comment and its replies.
func (a *API) DeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, scope, err := scopeParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := uuidParam(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	removed, err := a.posts.DeleteComment(r.Context(), postID, scope, commentID, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// blockParams reads the post and block IDs of a block route.
func blockParams(r *http.Request) (postID, blockID uuid.UUID, err error) {
	if postID, err = uuidParam(r, "postID"); err != nil {
		return
	}
	blockID, err = uuidParam(r, "blockID")
	return
}

// scopeParams derives the comment scope from the route: post threads have
// no block, block threads no version.
func scopeParams(r *http.Request) (uuid.UUID, review.Scope, error) {
	postID, err := uuidParam(r, "postID")
	if err != nil {
		return uuid.Nil, review.Scope{}, err
	}
	if chi.URLParam(r, "blockID") == "" {
		return postID, review.PostScope(), nil
	}
	blockID, err := uuidParam(r, "blockID")
	if err != nil {
		return uuid.Nil, review.Scope{}, err
	}
	if chi.URLParam(r, "versionID") == "" {
		return postID, review.BlockScope(blockID), nil
	}
	versionID, err := uuidParam(r, "versionID")
	if err != nil {
		return uuid.Nil, review.Scope{}, err
	}
	return postID, review.VersionScope(blockID, versionID), nil
}
