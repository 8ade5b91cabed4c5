package str

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/tabular"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/sirupsen/logrus"
)

const (
	ModeSkip   = "skip"
	ModeUpdate = "update"
)

var ErrUnreadable = errors.New("unreadable export file")

type ImportResult struct {
	Channel  string              `json:"channel"`
	Imported int                 `json:"imported"`
	Errors   []models.FieldError `json:"errors"`
}

// Service validates, derives and stores bookings.
type Service struct {
	repo     repo.BookingRepository
	rates    *taxrates.Table
	log      logrus.FieldLogger
	now      func() time.Time
	onChange []func(administration string)
}

func NewService(r repo.BookingRepository, rates *taxrates.Table, log logrus.FieldLogger) *Service {
	return &Service{repo: r, rates: rates, log: log, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// OnChange registers fn to run after bookings of an administration changed.
func (s *Service) OnChange(fn func(administration string)) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed(administration string) {
	for _, fn := range s.onChange {
		fn(administration)
	}
}

// Prepare validates b and fills its derived fields.
func (s *Service) Prepare(b *models.Booking) []models.FieldError {
	if errs := b.Validate(); len(errs) > 0 {
		return errs
	}
	if err := Calculate(b, s.rates, s.now()); err != nil {
		return []models.FieldError{{Field: "CheckoutDate", Description: err.Error()}}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, b models.Booking) (models.Booking, []models.FieldError, error) {
	if errs := s.Prepare(&b); len(errs) > 0 {
		return models.Booking{}, errs, nil
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return models.Booking{}, nil, err
	}
	s.changed(b.Administration)
	return created, nil, nil
}

func (s *Service) Update(ctx context.Context, b models.Booking) (models.Booking, []models.FieldError, error) {
	if errs := s.Prepare(&b); len(errs) > 0 {
		return models.Booking{}, errs, nil
	}
	updated, err := s.repo.Update(ctx, b)
	if err != nil {
		return models.Booking{}, nil, err
	}
	s.changed(b.Administration)
	return updated, nil, nil
}

func (s *Service) Delete(ctx context.Context, administration string, id int) error {
	if err := s.repo.Delete(ctx, administration, id); err != nil {
		return err
	}
	s.changed(administration)
	return nil
}

// Import stores the reservations of a channel export. Existing reservations
// (same channel and code) are reported in skip mode and overwritten in
// update mode.
func (s *Service) Import(ctx context.Context, administration, filename string, data []byte, mode string) (ImportResult, error) {
	if mode != ModeUpdate {
		mode = ModeSkip
	}
	rows, err := tabular.Read(filename, data)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	channel, reservations, errs, err := ParseExport(rows)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Channel: channel, Errors: []models.FieldError{}}
	res.Errors = append(res.Errors, errs...)
	source := filepath.Base(filename)

	for _, rv := range reservations {
		b := rv.Booking
		b.Administration = administration
		b.SourceFile = source
		if fieldErrs := s.Prepare(&b); len(fieldErrs) > 0 {
			res.Errors = append(res.Errors, rowError(rv.Row, fieldErrs[0].Description))
			continue
		}

		existing, err := s.repo.GetByReservation(ctx, administration, b.Channel, b.ReservationCode)
		switch {
		case err == nil:
			if mode == ModeSkip {
				res.Errors = append(res.Errors, rowError(rv.Row, fmt.Sprintf("booking %s already exists", b.ReservationCode)))
				continue
			}
			b.ID = existing.ID
			if _, err := s.repo.Update(ctx, b); err != nil {
				res.Errors = append(res.Errors, rowError(rv.Row, fmt.Sprintf("failed to update %s", b.ReservationCode)))
				continue
			}
		case errors.Is(err, repo.ErrBookingNotFound):
			if _, err := s.repo.Create(ctx, b); err != nil {
				res.Errors = append(res.Errors, rowError(rv.Row, fmt.Sprintf("failed to create %s", b.ReservationCode)))
				continue
			}
		default:
			return res, fmt.Errorf("lookup reservation: %w", err)
		}
		res.Imported++
	}

	if res.Imported > 0 {
		s.changed(administration)
	}
	s.log.WithFields(logrus.Fields{
		"administration": administration,
		"channel":        channel,
		"mode":           mode,
		"imported":       res.Imported,
		"errors":         len(res.Errors),
	}).Info("reservations imported")
	return res, nil
}

func rowError(row int, msg string) models.FieldError {
	return models.FieldError{Description: fmt.Sprintf("row %d: %s", row, strings.TrimSpace(msg))}
}
