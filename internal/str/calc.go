// Package str handles short-term-rental bookings: the amounts derived from
// a stay and the reservation exports of the booking channels.
package str

import (
	"errors"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/shopspring/decimal"
)

var ErrInvalidStay = errors.New("checkout must be after checkin")

var one = decimal.NewFromInt(1)

// Calculate fills the derived fields of b. Tourist tax and VAT are both
// included in the gross amount; VAT is charged on the gross without the
// tourist tax. Rates are those valid on the checkin date.
func Calculate(b *models.Booking, rates *taxrates.Table, now time.Time) error {
	if !b.CheckoutDate.After(b.CheckinDate) {
		return ErrInvalidStay
	}

	b.Nights = b.CheckinDate.DaysUntil(b.CheckoutDate)
	b.Year = b.CheckinDate.Year()
	b.Quarter = b.CheckinDate.Quarter()
	b.Month = int(b.CheckinDate.Month())

	if b.AmountChannelFee.IsZero() {
		b.AmountChannelFee = b.AmountGross.Mul(rates.Commission(b.Channel)).Round(2)
	}

	tt := rates.TouristTaxOn(b.CheckinDate)
	b.AmountTouristTax = b.AmountGross.Mul(tt).Div(one.Add(tt)).Round(2)

	vat := rates.VATOn(b.CheckinDate)
	b.AmountVat = b.AmountGross.Sub(b.AmountTouristTax).Mul(vat).Div(one.Add(vat)).Round(2)

	b.AmountNett = b.AmountGross.Sub(b.AmountChannelFee)
	b.PricePerNight = b.AmountGross.Div(decimal.NewFromInt(int64(b.Nights))).Round(2)

	b.DaysBeforeReservation = 0
	if !b.ReservationDate.IsZero() {
		b.DaysBeforeReservation = max(b.ReservationDate.DaysUntil(b.CheckinDate), 0)
	}

	if b.Status == "" {
		b.Status = models.BookingRealised
		if b.CheckinDate.After(models.DateOf(now)) {
			b.Status = models.BookingPlanned
		}
	}
	return nil
}
