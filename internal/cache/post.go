// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// post.go provides a Valkey-backed read-through cache of post aggregates.
// Loading a post decodes several JSONB columns, so the decoded aggregate is
// stored as JSON and dropped whenever the post is written.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"postdeck/internal/metrics"
	"postdeck/internal/models"
)

const (
	// postKeyPrefix is the Valkey key prefix for cached posts.
	postKeyPrefix = "post:"

	// DefaultPostTTL is how long a decoded post stays cached.
	DefaultPostTTL = 5 * time.Minute
)

// PostCache manages post aggregate caching in Valkey.
type PostCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewPostCache creates a new post cache backed by the given Valkey client.
// m may be nil.
func NewPostCache(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *PostCache {
	if ttl == 0 {
		ttl = DefaultPostTTL
	}
	return &PostCache{client: client, ttl: ttl, metrics: m}
}

// PostKey returns the cache key for a post.
func PostKey(id uuid.UUID) string {
	return postKeyPrefix + id.String()
}

// Get returns the cached post. Errors are logged and reported as a miss.
func (pc *PostCache) Get(ctx context.Context, id uuid.UUID) (*models.Post, bool) {
	val, err := pc.client.Get(ctx, PostKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		pc.miss()
		return nil, false
	}
	if err != nil {
		slog.Warn("post cache get error", "post_id", id, "error", err)
		pc.miss()
		return nil, false
	}

	var p models.Post
	if err := json.Unmarshal(val, &p); err != nil {
		slog.Warn("post cache decode error", "post_id", id, "error", err)
		pc.Invalidate(ctx, id)
		pc.miss()
		return nil, false
	}
	if pc.metrics != nil {
		pc.metrics.RecordCacheHit()
	}
	return &p, true
}

// Set stores a post with the configured TTL.
func (pc *PostCache) Set(ctx context.Context, p *models.Post) {
	val, err := json.Marshal(p)
	if err != nil {
		slog.Warn("post cache encode error", "post_id", p.ID, "error", err)
		return
	}
	if err := pc.client.Set(ctx, PostKey(p.ID), val, pc.ttl).Err(); err != nil {
		slog.Warn("post cache set error", "post_id", p.ID, "error", err)
	}
}

// Invalidate removes posts from the cache.
func (pc *PostCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = PostKey(id)
	}
	if err := pc.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("post cache invalidate error", "count", len(keys), "error", err)
		return
	}
	slog.Debug("post cache invalidated", "count", len(keys))
}

// InvalidateAll removes all cached posts by scanning for the prefix.
func (pc *PostCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := pc.client.Scan(ctx, cursor, postKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("post cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("post cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("post cache fully cleared", "deleted", deleted)
	}
}

func (pc *PostCache) miss() {
	if pc.metrics != nil {
		pc.metrics.RecordCacheMiss()
	}
}
