package redissvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func reportKey(administration, key string) string {
	return fmt.Sprintf("report:%s:%s", administration, key)
}

// ReportCache stores rendered reports per administration as JSON with a TTL.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReportCache(rs *RedisService, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rs.Rdb(), ttl: ttl}
}

func (c *ReportCache) Get(ctx context.Context, administration, key string, dst any) (bool, error) {
	data, err := c.rdb.Get(ctx, reportKey(administration, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached report: %w", err)
	}
	return true, nil
}

func (c *ReportCache) Set(ctx context.Context, administration, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, reportKey(administration, key), data, c.ttl).Err()
}

// Invalidate drops every cached report of administration.
func (c *ReportCache) Invalidate(ctx context.Context, administration string) error {
	iter := c.rdb.Scan(ctx, 0, reportKey(administration, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryReportCache is the single-process fallback when no Redis is configured.
type MemoryReportCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryReportCache(ttl time.Duration) *MemoryReportCache {
	return &MemoryReportCache{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (c *MemoryReportCache) SetClock(now func() time.Time) { c.now = now }

func (c *MemoryReportCache) Get(_ context.Context, administration, key string, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[reportKey(administration, key)]
	c.mu.Unlock()
	if !ok || c.now().After(e.expires) {
		return false, nil
	}
	return true, json.Unmarshal(e.data, dst)
}

func (c *MemoryReportCache) Set(_ context.Context, administration, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[reportKey(administration, key)] = memoryEntry{data: data, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryReportCache) Invalidate(_ context.Context, administration string) error {
	prefix := reportKey(administration, "")
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}
