// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package outbox persists optimistic board mutations in the background.
// Each mutation is applied locally first and then enqueued as one Command
// per stored entity. Commands that keep failing are rolled back and
// reported, so the caller can reconcile its local state.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"postdeck/internal/metrics"
)

var ErrClosed = errors.New("outbox closed")

// Status is the lifecycle state of a command.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Command is one unit of persistence work. Commands with the same Key run
// in enqueue order.
type Command struct {
	ID       uuid.UUID
	Kind     string
	Key      string
	Run      func(ctx context.Context) error
	Rollback func()
}

// Record is the observable state of a command.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	Status     Status    `json:"status"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Config tunes the worker pool and the retry schedule.
type Config struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// History caps how many finished records are kept for Status lookups.
	History int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		QueueSize:      256,
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		History:        1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.History <= 0 {
		c.History = d.History
	}
	return c
}

// Option configures a Queue.
type Option func(*Queue)

// WithMetrics records command outcomes and the pending gauge into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// OnFailed registers a callback invoked after a command is rolled back and
// logged.
func OnFailed(fn func(Record)) Option {
	return func(q *Queue) { q.onFailed = fn }
}

// Queue runs commands on a fixed pool of workers. Commands are sharded by
// Key so that updates to one entity never race each other.
type Queue struct {
	cfg      Config
	metrics  *metrics.Metrics
	onFailed func(Record)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sendMu sync.RWMutex
	closed bool
	shards []chan *Command

	mu       sync.Mutex
	records  map[uuid.UUID]*Record
	finished []uuid.UUID
	failed   []Record
}

// New starts a Queue with cfg. Zero fields in cfg take their defaults.
func New(cfg Config, opts ...Option) *Queue {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		records: make(map[uuid.UUID]*Record),
	}
	for _, opt := range opts {
		opt(q)
	}

	perShard := cfg.QueueSize / cfg.Workers
	if perShard < 1 {
		perShard = 1
	}
	q.shards = make([]chan *Command, cfg.Workers)
	for i := range q.shards {
		q.shards[i] = make(chan *Command, perShard)
		q.wg.Add(1)
		go q.worker(q.shards[i])
	}
	return q
}

// Enqueue schedules cmd and returns its ID. It blocks while the target
// shard is full.
func (q *Queue) Enqueue(ctx context.Context, cmd Command) (uuid.UUID, error) {
	if cmd.Run == nil {
		return uuid.Nil, fmt.Errorf("enqueue %s: command has no Run func", cmd.Kind)
	}
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}

	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return uuid.Nil, ErrClosed
	}

	now := time.Now().UTC()
	q.mu.Lock()
	q.records[cmd.ID] = &Record{
		ID: cmd.ID, Kind: cmd.Kind, Key: cmd.Key,
		Status: StatusPending, EnqueuedAt: now, UpdatedAt: now,
	}
	q.mu.Unlock()
	if q.metrics != nil {
		q.metrics.OutboxPending.Inc()
	}

	select {
	case q.shard(cmd.Key) <- &cmd:
		return cmd.ID, nil
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.records, cmd.ID)
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.OutboxPending.Dec()
		}
		return uuid.Nil, fmt.Errorf("enqueue %s: %w", cmd.Kind, ctx.Err())
	}
}

// Status returns the record for id. Finished records are kept up to
// Config.History entries.
func (q *Queue) Status(id uuid.UUID) (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Pending returns the number of commands that have not finished yet.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, r := range q.records {
		if r.Status == StatusPending {
			n++
		}
	}
	return n
}

// Failed returns the most recent rolled back commands, oldest first.
func (q *Queue) Failed() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Record, len(q.failed))
	copy(out, q.failed)
	return out
}

// Close stops accepting commands and waits for the queued ones to finish.
// If ctx expires first, in-flight retries are abandoned and rolled back.
func (q *Queue) Close(ctx context.Context) error {
	q.sendMu.Lock()
	if !q.closed {
		q.closed = true
		for _, ch := range q.shards {
			close(ch)
		}
	}
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return fmt.Errorf("close outbox: %w", ctx.Err())
	}
}

func (q *Queue) shard(key string) chan *Command {
	h := fnv.New32a()
	h.Write([]byte(key))
	return q.shards[h.Sum32()%uint32(len(q.shards))]
}

func (q *Queue) worker(ch chan *Command) {
	defer q.wg.Done()
	for cmd := range ch {
		q.process(cmd)
	}
}

func (q *Queue) process(cmd *Command) {
	b := retry.NewExponential(q.cfg.InitialBackoff)
	b = retry.WithCappedDuration(q.cfg.MaxBackoff, b)
	b = retry.WithMaxRetries(uint64(q.cfg.MaxAttempts-1), b)

	var (
		attempts int
		lastErr  error
	)
	err := retry.Do(q.ctx, b, func(ctx context.Context) error {
		attempts++
		err := cmd.Run(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("outbox command failed", "kind", cmd.Kind, "key", cmd.Key, "attempt", attempts, "error", err)
		return retry.RetryableError(err)
	})
	// A shutdown during backoff reports the last failure, not the
	// cancellation.
	if err != nil && lastErr != nil {
		err = lastErr
	}
	q.finish(cmd, attempts, err)
}

func (q *Queue) finish(cmd *Command, attempts int, err error) {
	if err != nil && cmd.Rollback != nil {
		cmd.Rollback()
	}

	q.mu.Lock()
	r, ok := q.records[cmd.ID]
	if !ok {
		r = &Record{ID: cmd.ID, Kind: cmd.Kind, Key: cmd.Key}
		q.records[cmd.ID] = r
	}
	r.Attempts = attempts
	r.UpdatedAt = time.Now().UTC()
	r.Status = StatusConfirmed
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		q.failed = append(q.failed, *r)
		if len(q.failed) > q.cfg.History {
			q.failed = q.failed[len(q.failed)-q.cfg.History:]
		}
	}
	snapshot := *r
	q.finished = append(q.finished, cmd.ID)
	for len(q.finished) > q.cfg.History {
		delete(q.records, q.finished[0])
		q.finished = q.finished[1:]
	}
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.OutboxPending.Dec()
		q.metrics.OutboxCommands.WithLabelValues(cmd.Kind, string(snapshot.Status)).Inc()
	}
	if err != nil {
		slog.Error("outbox command rolled back", "id", cmd.ID, "kind", cmd.Kind, "key", cmd.Key, "attempts", attempts, "error", err)
		if q.onFailed != nil {
			q.onFailed(snapshot)
		}
	}
}
