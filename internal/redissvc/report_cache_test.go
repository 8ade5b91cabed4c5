package redissvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type report struct {
	Year  int    `json:"year"`
	Total string `json:"total"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisService) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewRedisService(rdb, context.Background())
}

func TestReportCache_RoundTripAndTTL(t *testing.T) {
	mr, rs := newRedis(t)
	c := NewReportCache(rs, 10*time.Minute)
	ctx := context.Background()

	var got report
	if ok, err := c.Get(ctx, "GoodwinSolutions", "btw:2025:1", &got); ok || err != nil {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
	if err := c.Set(ctx, "GoodwinSolutions", "btw:2025:1", report{Year: 2025, Total: "12.50"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !mr.Exists("report:GoodwinSolutions:btw:2025:1") {
		t.Error("expected tenant scoped key")
	}
	ok, err := c.Get(ctx, "GoodwinSolutions", "btw:2025:1", &got)
	if !ok || err != nil || got.Total != "12.50" {
		t.Errorf("expected hit, got %v %v %+v", ok, err, got)
	}

	mr.FastForward(11 * time.Minute)
	if ok, _ := c.Get(ctx, "GoodwinSolutions", "btw:2025:1", &got); ok {
		t.Error("expected entry to expire")
	}
}

func TestReportCache_InvalidateIsTenantScoped(t *testing.T) {
	mr, rs := newRedis(t)
	c := NewReportCache(rs, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "GoodwinSolutions", "btw:2025:1", report{Year: 2025})
	c.Set(ctx, "GoodwinSolutions", "ib:2025", report{Year: 2025})
	c.Set(ctx, "PeterPrive", "ib:2025", report{Year: 2025})

	if err := c.Invalidate(ctx, "GoodwinSolutions"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if mr.Exists("report:GoodwinSolutions:btw:2025:1") || mr.Exists("report:GoodwinSolutions:ib:2025") {
		t.Error("expected tenant reports to be removed")
	}
	if !mr.Exists("report:PeterPrive:ib:2025") {
		t.Error("expected other tenant to keep its report")
	}
}

func TestMemoryReportCache(t *testing.T) {
	c := NewMemoryReportCache(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })
	ctx := context.Background()

	c.Set(ctx, "A", "ib:2025", report{Year: 2025})
	c.Set(ctx, "B", "ib:2025", report{Year: 2024})

	var got report
	if ok, _ := c.Get(ctx, "B", "ib:2025", &got); !ok || got.Year != 2024 {
		t.Errorf("expected tenant B report, got %v %+v", ok, got)
	}

	c.Invalidate(ctx, "A")
	if ok, _ := c.Get(ctx, "A", "ib:2025", &got); ok {
		t.Error("expected invalidated entry")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := c.Get(ctx, "B", "ib:2025", &got); ok {
		t.Error("expected expired entry")
	}
}
