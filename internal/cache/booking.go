package cache

import (
	"context"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/sirupsen/logrus"
)

// BookingCache keeps the bnb table in memory.
type BookingCache struct {
	t *table[models.Booking]
}

func NewBookingCache(r repo.BookingRepository, ttl time.Duration, log logrus.FieldLogger) *BookingCache {
	return &BookingCache{t: newTable("bnb", ttl, r.LoadAll, log)}
}

func (c *BookingCache) SetClock(now func() time.Time) { c.t.now = now }

func (c *BookingCache) Get(ctx context.Context) ([]models.Booking, error) { return c.t.get(ctx) }
func (c *BookingCache) Refresh(ctx context.Context) error                { return c.t.refresh(ctx) }
func (c *BookingCache) Invalidate()                                       { c.t.invalidate() }
func (c *BookingCache) Status() Status                                    { return c.t.status() }

type BookingQuery struct {
	Year    int
	Status  string
	Channel string
	Listing string
}

func (c *BookingCache) Bookings(ctx context.Context, administration string, q BookingQuery) ([]models.Booking, error) {
	all, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Booking{}
	for _, b := range all {
		if b.Administration != administration {
			continue
		}
		if q.Year != 0 && b.Year != q.Year {
			continue
		}
		if q.Status != "" && b.Status != q.Status {
			continue
		}
		if q.Channel != "" && b.Channel != q.Channel {
			continue
		}
		if q.Listing != "" && b.Listing != q.Listing {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
