// Package jobs schedules the periodic background work: cache refresh,
// the daily ban summary and expired-token cleanup.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 5 * time.Minute

type Config struct {
	Timezone     string
	CacheRefresh string
	BanSummary   string
	TokenCleanup string
}

// Refresher reloads a cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type BanSummarizer interface {
	SendDailySummary(ctx context.Context) (int, error)
}

type Cleaner interface {
	Cleanup() int
}

type Scheduler struct {
	cron *cron.Cron
	cfg  Config
	loc  *time.Location
	log  logrus.FieldLogger
}

// New builds a scheduler in cfg.Timezone. An unknown timezone falls back to UTC.
func New(cfg Config, log logrus.FieldLogger) *Scheduler {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.WithError(err).WithField("timezone", cfg.Timezone).Warn("invalid timezone, falling back to UTC")
		loc = time.UTC
	}
	return &Scheduler{cron: cron.New(cron.WithLocation(loc)), cfg: cfg, loc: loc, log: log}
}

func (s *Scheduler) Location() *time.Location { return s.loc }

func (s *Scheduler) add(name, spec string, job func(ctx context.Context) error) error {
	if spec == "" {
		s.log.WithField("job", name).Info("job disabled")
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		entry := s.log.WithField("job", name)
		if err := job(ctx); err != nil {
			entry.WithError(err).Error("job failed")
			return
		}
		entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("job completed")
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.WithFields(logrus.Fields{"job": name, "schedule": spec, "timezone": s.loc.String()}).Info("job scheduled")
	return nil
}

// RefreshAll reloads every cache and returns the first error.
func RefreshAll(ctx context.Context, caches ...Refresher) error {
	var first error
	for _, c := range caches {
		if err := c.Refresh(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Scheduler) AddCacheRefresh(caches ...Refresher) error {
	return s.add("cache_refresh", s.cfg.CacheRefresh, func(ctx context.Context) error {
		return RefreshAll(ctx, caches...)
	})
}

func (s *Scheduler) AddBanSummary(b BanSummarizer) error {
	return s.add("ban_summary", s.cfg.BanSummary, func(ctx context.Context) error {
		n, err := b.SendDailySummary(ctx)
		if n > 0 {
			s.log.WithField("bans", n).Info("ban summary sent")
		}
		return err
	})
}

// AddCleanup schedules expiry sweeps for in-memory stores such as refresh
// tokens and rate limiter visitors.
func (s *Scheduler) AddCleanup(cleaners ...Cleaner) error {
	return s.add("token_cleanup", s.cfg.TokenCleanup, func(context.Context) error {
		removed := 0
		for _, c := range cleaners {
			removed += c.Cleanup()
		}
		if removed > 0 {
			s.log.WithField("removed", removed).Info("expired entries removed")
		}
		return nil
	})
}

func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
