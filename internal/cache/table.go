package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Status describes a table cache for the cache status endpoint.
type Status struct {
	Name     string     `json:"name"`
	LoadedAt *time.Time `json:"loaded_at"`
	Rows     int        `json:"rows"`
	Hits     int64      `json:"hits"`
	Misses   int64      `json:"misses"`
	TTL      string     `json:"ttl"`
	Stale    bool       `json:"stale"`
}

// table holds a full in-memory copy of one database table or view. A single
// mutex serialises loads, so callers arriving during a load wait for it and
// then share its result instead of querying again.
type table[T any] struct {
	name string
	load func(context.Context) ([]T, error)
	ttl  time.Duration
	now  func() time.Time
	log  logrus.FieldLogger

	mu       sync.Mutex
	rows     []T
	loadedAt time.Time
	stale    bool

	hits   atomic.Int64
	misses atomic.Int64
}

func newTable[T any](name string, ttl time.Duration, load func(context.Context) ([]T, error), log logrus.FieldLogger) *table[T] {
	return &table[T]{name: name, load: load, ttl: ttl, now: time.Now, log: log}
}

func (t *table[T]) fresh() bool {
	return !t.loadedAt.IsZero() && !t.stale && t.now().Sub(t.loadedAt) < t.ttl
}

// get returns the current snapshot. The slice must not be modified.
func (t *table[T]) get(ctx context.Context) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fresh() {
		t.hits.Add(1)
		return t.rows, nil
	}
	t.misses.Add(1)
	return t.reload(ctx)
}

func (t *table[T]) reload(ctx context.Context) ([]T, error) {
	start := t.now()
	rows, err := t.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.name, err)
	}
	t.rows = rows
	t.loadedAt = t.now()
	t.stale = false
	t.log.WithFields(logrus.Fields{
		"cache":    t.name,
		"rows":     len(rows),
		"duration": t.now().Sub(start).String(),
	}).Info("cache loaded")
	return rows, nil
}

func (t *table[T]) refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.reload(ctx)
	return err
}

func (t *table[T]) invalidate() {
	t.mu.Lock()
	t.stale = true
	t.mu.Unlock()
}

func (t *table[T]) status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Name:   t.name,
		Rows:   len(t.rows),
		Hits:   t.hits.Load(),
		Misses: t.misses.Load(),
		TTL:    t.ttl.String(),
		Stale:  !t.fresh(),
	}
	if !t.loadedAt.IsZero() {
		loaded := t.loadedAt
		s.LoadedAt = &loaded
	}
	return s
}
