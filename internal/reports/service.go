// Package reports computes the financial and tax reports of an
// administration from the cached ledger and booking tables.
package reports

import (
	"context"
	"errors"

	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPeriod = errors.New("invalid report period")
	ErrNothingToBook = errors.New("nothing to book")
	ErrAlreadyBooked = errors.New("already booked")
)

// ResultCache keeps rendered reports per administration.
type ResultCache interface {
	Get(ctx context.Context, administration, key string, dst any) (bool, error)
	Set(ctx context.Context, administration, key string, v any) error
	Invalidate(ctx context.Context, administration string) error
}

type Service struct {
	ledger   *cache.LedgerCache
	bookings *cache.BookingCache
	txs      repo.TransactionRepository
	rates    *taxrates.Table
	results  ResultCache
	log      logrus.FieldLogger
}

func NewService(ledger *cache.LedgerCache, bookings *cache.BookingCache, txs repo.TransactionRepository, rates *taxrates.Table, results ResultCache, log logrus.FieldLogger) *Service {
	return &Service{ledger: ledger, bookings: bookings, txs: txs, rates: rates, results: results, log: log}
}

// Invalidate drops the cached reports of administration.
func (s *Service) Invalidate(ctx context.Context, administration string) {
	if s.results == nil {
		return
	}
	if err := s.results.Invalidate(ctx, administration); err != nil {
		s.log.WithError(err).WithField("administration", administration).Warn("report cache invalidation failed")
	}
}

// cached returns the stored report under key or builds and stores it.
// Cache failures are logged and the report is built from the ledger.
func cached[T any](ctx context.Context, s *Service, administration, key string, build func() (T, error)) (T, error) {
	var out T
	if s.results != nil {
		ok, err := s.results.Get(ctx, administration, key, &out)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("report cache read failed")
		}
		if ok && err == nil {
			return out, nil
		}
	}

	out, err := build()
	if err != nil {
		return out, err
	}
	if s.results != nil {
		if err := s.results.Set(ctx, administration, key, out); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("report cache write failed")
		}
	}
	return out, nil
}
