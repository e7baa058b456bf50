// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Reconciler corrects post statuses against their publish dates.
type Reconciler interface {
	ReconcileSchedule(ctx context.Context) (int, error)
}

// lockKey guards a reconcile pass when several instances share Valkey.
const lockKey = "postdeck:lock:reconcile"

// StatusReconciler runs a Reconciler on a fixed interval.
type StatusReconciler struct {
	rec      Reconciler
	interval time.Duration
	client   *redis.Client
	owner    string
}

// NewStatusReconciler creates a StatusReconciler. When client is not nil
// a pass only runs on the instance holding the Valkey lock.
func NewStatusReconciler(rec Reconciler, interval time.Duration, client *redis.Client) *StatusReconciler {
	return &StatusReconciler{
		rec:      rec,
		interval: interval,
		client:   client,
		owner:    uuid.NewString(),
	}
}

// Run reconciles once immediately and then on every tick until ctx is
// cancelled.
func (r *StatusReconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("status reconciler stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// RunOnce performs a single pass. It reports false when another instance
// holds the lock.
func (r *StatusReconciler) RunOnce(ctx context.Context) (changed int, ran bool, err error) {
	if r.client != nil {
		ok, err := r.client.SetNX(ctx, lockKey, r.owner, r.interval).Result()
		if err != nil {
			return 0, false, fmt.Errorf("acquire reconcile lock: %w", err)
		}
		if !ok {
			return 0, false, nil
		}
		defer r.release(ctx)
	}
	changed, err = r.rec.ReconcileSchedule(ctx)
	return changed, true, err
}

func (r *StatusReconciler) tick(ctx context.Context) {
	start := time.Now()
	changed, ran, err := r.RunOnce(ctx)
	if err != nil {
		slog.Error("status reconcile failed", "changed", changed, "error", err)
		return
	}
	if ran && changed > 0 {
		slog.Info("post statuses reconciled", "changed", changed, "duration", time.Since(start))
	}
}

// release deletes the lock only if this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *StatusReconciler) release(ctx context.Context) {
	if err := releaseScript.Run(ctx, r.client, []string{lockKey}, r.owner).Err(); err != nil {
		slog.Warn("release reconcile lock failed", "error", err)
	}
}
