package reports

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
)

type StayTotals struct {
	Bookings    int             `json:"bookings"`
	Nights      int             `json:"nights"`
	GuestNights int             `json:"guest_nights"`
	Gross       decimal.Decimal `json:"gross"`
	TouristTax  decimal.Decimal `json:"tourist_tax"`
	Vat         decimal.Decimal `json:"vat"`
	Nett        decimal.Decimal `json:"nett"`
}

func (t *StayTotals) add(b models.Booking) {
	t.Bookings++
	t.Nights += b.Nights
	t.GuestNights += b.Nights * max(b.Guests, 1)
	t.Gross = t.Gross.Add(b.AmountGross)
	t.TouristTax = t.TouristTax.Add(b.AmountTouristTax)
	t.Vat = t.Vat.Add(b.AmountVat)
	t.Nett = t.Nett.Add(b.AmountNett)
}

type KeyedTotals struct {
	Key string `json:"key"`
	StayTotals
}

type TouristTaxReport struct {
	Year           int             `json:"year"`
	Totals         StayTotals      `json:"totals"`
	ByListing      []KeyedTotals   `json:"by_listing"`
	ByChannel      []KeyedTotals   `json:"by_channel"`
	LedgerAccount  string          `json:"ledger_account"`
	LedgerMovement decimal.Decimal `json:"ledger_movement"`
	Difference     decimal.Decimal `json:"difference"`
}

// TouristTax totals the tourist tax of the year's realised stays and
// compares it with what was booked on the tourist tax account.
func (s *Service) TouristTax(ctx context.Context, administration string, year int) (TouristTaxReport, error) {
	if year < 1900 || year > 9999 {
		return TouristTaxReport{}, ErrInvalidPeriod
	}
	return cached(ctx, s, administration, fmt.Sprintf("touristtax:%d", year), func() (TouristTaxReport, error) {
		stays, err := s.bookings.Bookings(ctx, administration, cache.BookingQuery{Year: year, Status: models.BookingRealised})
		if err != nil {
			return TouristTaxReport{}, err
		}

		r := TouristTaxReport{Year: year, LedgerAccount: s.rates.TouristTaxAccount}
		listings, channels := map[string]*StayTotals{}, map[string]*StayTotals{}
		for _, b := range stays {
			r.Totals.add(b)
			group(listings, b.Listing).add(b)
			group(channels, b.Channel).add(b)
		}
		r.ByListing = flatten(listings)
		r.ByChannel = flatten(channels)

		from, to := models.YearBounds(year)
		entries, err := s.ledger.Entries(ctx, administration, cache.LedgerQuery{From: from, To: to, Accounts: []string{r.LedgerAccount}})
		if err != nil {
			return TouristTaxReport{}, err
		}
		for _, e := range entries {
			r.LedgerMovement = r.LedgerMovement.Add(e.Amount)
		}
		r.Difference = r.Totals.TouristTax.Sub(r.LedgerMovement.Abs())
		return r, nil
	})
}

func group(m map[string]*StayTotals, key string) *StayTotals {
	t, ok := m[key]
	if !ok {
		t = &StayTotals{}
		m[key] = t
	}
	return t
}

func flatten(m map[string]*StayTotals) []KeyedTotals {
	out := make([]KeyedTotals, 0, len(m))
	for k, t := range m {
		out = append(out, KeyedTotals{Key: k, StayTotals: *t})
	}
	slices.SortFunc(out, func(a, b KeyedTotals) int { return cmp.Compare(a.Key, b.Key) })
	return out
}
