package repo

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/PeterGeers/myadmin/internal/models"
)

type InMemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings []models.Booking
	nextID   int
	loads    atomic.Int64
}

func NewInMemoryBookingRepository() *InMemoryBookingRepository {
	return &InMemoryBookingRepository{bookings: []models.Booking{}, nextID: 1}
}

func (r *InMemoryBookingRepository) Create(_ context.Context, b models.Booking) (models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.Administration == b.Administration && existing.Channel == b.Channel &&
			existing.ReservationCode == b.ReservationCode && b.ReservationCode != "" {
			return models.Booking{}, ErrDuplicatedValueUnique
		}
	}
	b.ID = r.nextID
	r.nextID++
	r.bookings = append(r.bookings, b)
	return b, nil
}

func (r *InMemoryBookingRepository) GetByID(_ context.Context, administration string, id int) (models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if b.ID == id && b.Administration == administration {
			return b, nil
		}
	}
	return models.Booking{}, ErrBookingNotFound
}

func (r *InMemoryBookingRepository) GetByReservation(_ context.Context, administration, channel, code string) (models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if b.Administration == administration && b.Channel == channel && b.ReservationCode == code {
			return b, nil
		}
	}
	return models.Booking{}, ErrBookingNotFound
}

func (r *InMemoryBookingRepository) Update(_ context.Context, b models.Booking) (models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.bookings {
		if existing.ID == b.ID && existing.Administration == b.Administration {
			r.bookings[i] = b
			return b, nil
		}
	}
	return models.Booking{}, ErrBookingNotFound
}

func (r *InMemoryBookingRepository) Delete(_ context.Context, administration string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, b := range r.bookings {
		if b.ID == id && b.Administration == administration {
			r.bookings = append(r.bookings[:i], r.bookings[i+1:]...)
			return nil
		}
	}
	return ErrBookingNotFound
}

func matchesBooking(b models.Booking, f BookingFilter) bool {
	if b.Administration != f.Administration {
		return false
	}
	if f.Year != nil && b.Year != *f.Year {
		return false
	}
	if f.Channel != "" && b.Channel != f.Channel {
		return false
	}
	if f.Listing != "" && b.Listing != f.Listing {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.From != nil && b.CheckinDate.Before(*f.From) {
		return false
	}
	if f.To != nil && b.CheckinDate.After(*f.To) {
		return false
	}
	return true
}

func (r *InMemoryBookingRepository) Filter(_ context.Context, f BookingFilter) ([]models.Booking, int, error) {
	r.mu.RLock()
	var filtered []models.Booking
	for _, b := range r.bookings {
		if matchesBooking(b, f) {
			filtered = append(filtered, b)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(filtered, func(a, b models.Booking) int {
		if c := b.CheckinDate.Compare(a.CheckinDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(filtered, f.Limit, f.Offset), len(filtered), nil
}

func (r *InMemoryBookingRepository) LoadAll(_ context.Context) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.loads.Add(1)
	return slices.Clone(r.bookings), nil
}

// Loads returns how many times the full table was read.
func (r *InMemoryBookingRepository) Loads() int {
	return int(r.loads.Load())
}

func (r *InMemoryBookingRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = []models.Booking{}
	r.nextID = 1
}
