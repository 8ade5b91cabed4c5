package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.calls++
	return c.err
}

type fixedCleaner int

func (f fixedCleaner) Cleanup() int { return int(f) }

type fakeSummary struct{ sent int }

func (f *fakeSummary) SendDailySummary(context.Context) (int, error) {
	f.sent++
	return 2, nil
}

func TestRefreshAll(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countingRefresher{err: boom}, &countingRefresher{}
	if err := RefreshAll(context.Background(), a, b); !errors.Is(err, boom) {
		t.Errorf("expected first error, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("every cache should be refreshed, got %d and %d", a.calls, b.calls)
	}
}

func TestScheduler_Add(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := New(Config{
		Timezone:     "Europe/Amsterdam",
		CacheRefresh: "*/30 * * * *",
		BanSummary:   "59 23 * * *",
		TokenCleanup: "",
	}, log)

	if s.Location().String() != "Europe/Amsterdam" {
		t.Errorf("unexpected location %s", s.Location())
	}
	if err := s.AddCacheRefresh(&countingRefresher{}); err != nil {
		t.Fatalf("cache refresh: %v", err)
	}
	if err := s.AddBanSummary(&fakeSummary{}); err != nil {
		t.Fatalf("ban summary: %v", err)
	}
	if err := s.AddCleanup(fixedCleaner(1)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 scheduled jobs (cleanup disabled), got %d", s.Len())
	}
	if hook.LastEntry().Message != "job disabled" {
		t.Errorf("expected disabled job to be logged, got %q", hook.LastEntry().Message)
	}
}

func TestScheduler_InvalidSpecAndTimezone(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := New(Config{Timezone: "Mars/Olympus", CacheRefresh: "every now and then"}, log)
	if s.Location() != time.UTC {
		t.Errorf("expected UTC fallback, got %s", s.Location())
	}
	if hook.Entries[0].Message != "invalid timezone, falling back to UTC" {
		t.Errorf("expected timezone warning, got %q", hook.Entries[0].Message)
	}
	if err := s.AddCacheRefresh(&countingRefresher{}); err == nil {
		t.Error("expected invalid schedule to fail")
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(Config{Timezone: "UTC"}, log)
	summary := &fakeSummary{}
	ref := &countingRefresher{}

	s.cfg.CacheRefresh = "@every 1s"
	s.cfg.BanSummary = "@every 1s"
	if err := s.AddCacheRefresh(ref); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBanSummary(summary); err != nil {
		t.Fatal(err)
	}
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if ref.calls == 0 || summary.sent == 0 {
		t.Errorf("expected scheduled jobs to run, got refresh=%d summary=%d", ref.calls, summary.sent)
	}
}
