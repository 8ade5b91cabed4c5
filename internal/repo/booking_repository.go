package repo

import (
	"context"

	"github.com/PeterGeers/myadmin/internal/models"
)

type BookingFilter struct {
	Administration string
	Year           *int
	Channel        string
	Listing        string
	Status         string
	From           *models.Date // checkin on or after
	To             *models.Date // checkin on or before
	Offset         *int
	Limit          *int
}

type BookingRepository interface {
	Create(ctx context.Context, b models.Booking) (models.Booking, error)
	GetByID(ctx context.Context, administration string, id int) (models.Booking, error)
	GetByReservation(ctx context.Context, administration, channel, code string) (models.Booking, error)
	Update(ctx context.Context, b models.Booking) (models.Booking, error)
	Delete(ctx context.Context, administration string, id int) error
	Filter(ctx context.Context, f BookingFilter) ([]models.Booking, int, error)
	// LoadAll returns the whole bnb table for every administration.
	LoadAll(ctx context.Context) ([]models.Booking, error)
}
