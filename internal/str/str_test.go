package str

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/taxrates"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
)

const admin = "GoodwinSolutions"

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func rates(t *testing.T) *taxrates.Table {
	t.Helper()
	tbl, err := taxrates.Default()
	if err != nil {
		t.Fatalf("load rates: %v", err)
	}
	return tbl
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate(t *testing.T) {
	b := models.Booking{
		Channel:         ChannelAirbnb,
		Listing:         "Red Studio",
		CheckinDate:     models.NewDate(2025, 7, 1),
		CheckoutDate:    models.NewDate(2025, 7, 4),
		ReservationDate: models.NewDate(2025, 5, 2),
		AmountGross:     dec("450"),
	}
	if err := Calculate(&b, rates(t), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Nights != 3 || b.Year != 2025 || b.Quarter != 3 || b.Month != 7 {
		t.Errorf("unexpected stay fields %+v", b)
	}
	checks := []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"channel fee", b.AmountChannelFee, dec("69.75")},
		{"tourist tax", b.AmountTouristTax, dec("31.40")},
		{"vat", b.AmountVat, dec("34.56")},
		{"nett", b.AmountNett, dec("380.25")},
		{"price per night", b.PricePerNight, dec("150")},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if b.DaysBeforeReservation != 60 {
		t.Errorf("expected 60 days before reservation, got %d", b.DaysBeforeReservation)
	}
	if b.Status != models.BookingPlanned {
		t.Errorf("expected planned status, got %q", b.Status)
	}
}

func TestCalculate_RatesFollowCheckinDate(t *testing.T) {
	b := models.Booking{
		Channel:          ChannelBooking,
		CheckinDate:      models.NewDate(2024, 3, 1),
		CheckoutDate:     models.NewDate(2024, 3, 3),
		AmountGross:      dec("300"),
		AmountChannelFee: dec("40"),
		ReservationDate:  models.NewDate(2024, 3, 5),
	}
	if err := Calculate(&b, rates(t), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.AmountTouristTax.Equal(dec("19.36")) || !b.AmountVat.Equal(dec("23.17")) {
		t.Errorf("expected 2024 rates, got tax %s vat %s", b.AmountTouristTax, b.AmountVat)
	}
	if !b.AmountChannelFee.Equal(dec("40")) || !b.AmountNett.Equal(dec("260")) {
		t.Errorf("expected given fee to be kept, got %s / %s", b.AmountChannelFee, b.AmountNett)
	}
	if b.DaysBeforeReservation != 0 || b.Status != models.BookingRealised {
		t.Errorf("unexpected %d / %q", b.DaysBeforeReservation, b.Status)
	}
}

func TestCalculate_InvalidStay(t *testing.T) {
	b := models.Booking{CheckinDate: models.NewDate(2025, 7, 4), CheckoutDate: models.NewDate(2025, 7, 4)}
	if err := Calculate(&b, rates(t), now); err != ErrInvalidStay {
		t.Errorf("expected ErrInvalidStay, got %v", err)
	}
}

func TestParseExport_Airbnb(t *testing.T) {
	rows := [][]string{
		{"Confirmation code", "Status", "Guest name", "Contact", "# of adults", "# of children", "Start date", "End date", "# of nights", "Booked", "Listing", "Earnings"},
		{"HMABC123", "Confirmed", "Jan Jansen", "+31 6 1234", "2", "1", "07/01/2025", "07/04/2025", "3", "2025-05-02", "Red Studio", "€ 450.00"},
		{"HMCAN999", "Canceled by guest", "Piet", "", "1", "0", "2025-08-01", "2025-08-02", "1", "", "Red Studio", "€ 0.00"},
		{"HMBAD000", "Confirmed", "Klaas", "", "1", "0", "31-31-2025", "2025-08-02", "1", "", "Red Studio", "€ 10.00"},
	}
	channel, res, errs, err := ParseExport(rows)
	if err != nil || channel != ChannelAirbnb {
		t.Fatalf("expected Airbnb export, got %q (%v)", channel, err)
	}
	if len(res) != 2 || len(errs) != 1 || !strings.HasPrefix(errs[0].Description, "row 4:") {
		t.Fatalf("expected 2 reservations and a row 4 error, got %d / %v", len(res), errs)
	}
	b := res[0].Booking
	if b.ReservationCode != "HMABC123" || b.Guests != 3 || b.CheckinDate != models.NewDate(2025, 7, 1) || !b.AmountGross.Equal(dec("450")) {
		t.Errorf("unexpected booking %+v", b)
	}
	if b.Channel != ChannelAirbnb || b.Status != "" {
		t.Errorf("unexpected channel/status %q/%q", b.Channel, b.Status)
	}
	if res[1].Booking.Status != models.BookingCancelled {
		t.Errorf("expected cancelled booking, got %q", res[1].Booking.Status)
	}
}

func TestParseExport_BookingCom(t *testing.T) {
	rows := [][]string{
		{"Book number", "Booked on", "Arrival", "Departure", "Guest name(s)", "Persons", "Status", "Price", "Commission amount", "Unit type"},
		{"4711", "2025-05-01 10:22:33", "2025-07-10", "2025-07-12", "Marie Curie", "2", "ok", "320 EUR", "48 EUR", "Green Room"},
	}
	channel, res, errs, err := ParseExport(rows)
	if err != nil || channel != ChannelBooking || len(errs) != 0 || len(res) != 1 {
		t.Fatalf("unexpected parse result %q %v %v %v", channel, res, errs, err)
	}
	b := res[0].Booking
	if b.Listing != "Green Room" || !b.AmountChannelFee.Equal(dec("48")) || b.ReservationDate != models.NewDate(2025, 5, 1) {
		t.Errorf("unexpected booking %+v", b)
	}

	if _, _, _, err := ParseExport([][]string{{"foo"}, {"bar"}}); err != ErrUnknownExport {
		t.Errorf("expected ErrUnknownExport, got %v", err)
	}
}

const airbnbCSV = `Confirmation code,Status,Guest name,Contact,# of adults,Start date,End date,Booked,Listing,Earnings
HMABC123,Confirmed,Jan Jansen,,2,2025-07-01,2025-07-04,2025-05-02,Red Studio,"€ 450.00"
HMDEF456,Past guest,Els,,1,2025-03-01,2025-03-02,2025-02-01,Red Studio,"€ 100.00"
`

func newService(t *testing.T) (*Service, *repo.InMemoryBookingRepository) {
	t.Helper()
	r := repo.NewInMemoryBookingRepository()
	logger, _ := test.NewNullLogger()
	s := NewService(r, rates(t), logger)
	s.SetClock(func() time.Time { return now })
	return s, r
}

func TestService_ImportModes(t *testing.T) {
	s, r := newService(t)
	ctx := context.Background()
	var changes int
	s.OnChange(func(string) { changes++ })

	res, err := s.Import(ctx, admin, "airbnb.csv", []byte(airbnbCSV), "")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res.Imported != 2 || len(res.Errors) != 0 || res.Channel != ChannelAirbnb {
		t.Fatalf("unexpected result %+v", res)
	}

	stored, err := r.GetByReservation(ctx, admin, ChannelAirbnb, "HMDEF456")
	if err != nil {
		t.Fatalf("expected stored booking: %v", err)
	}
	if stored.Status != models.BookingRealised || stored.SourceFile != "airbnb.csv" || stored.Nights != 1 {
		t.Errorf("unexpected stored booking %+v", stored)
	}

	res, _ = s.Import(ctx, admin, "airbnb.csv", []byte(airbnbCSV), ModeSkip)
	if res.Imported != 0 || len(res.Errors) != 2 || res.Errors[0].Description != "row 2: booking HMABC123 already exists" {
		t.Errorf("expected skip errors, got %+v", res)
	}

	updated := strings.Replace(airbnbCSV, "€ 100.00", "€ 120.00", 1)
	res, _ = s.Import(ctx, admin, "airbnb.csv", []byte(updated), ModeUpdate)
	if res.Imported != 2 || len(res.Errors) != 0 {
		t.Errorf("expected update of both rows, got %+v", res)
	}
	stored, _ = r.GetByReservation(ctx, admin, ChannelAirbnb, "HMDEF456")
	if !stored.AmountGross.Equal(dec("120")) {
		t.Errorf("expected updated gross, got %s", stored.AmountGross)
	}

	if _, total, _ := r.Filter(ctx, repo.BookingFilter{Administration: admin}); total != 2 {
		t.Errorf("expected 2 bookings after update, got %d", total)
	}
	if changes != 2 {
		t.Errorf("expected 2 change notifications, got %d", changes)
	}
}

func TestService_CreateValidates(t *testing.T) {
	s, _ := newService(t)
	_, errs, err := s.Create(context.Background(), models.Booking{Administration: admin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) < 2 {
		t.Errorf("expected validation errors, got %v", errs)
	}

	b, errs, err := s.Create(context.Background(), models.Booking{
		Administration: admin, Channel: "Direct", Listing: "Red Studio",
		CheckinDate: models.NewDate(2025, 9, 1), CheckoutDate: models.NewDate(2025, 9, 8), AmountGross: dec("700"),
	})
	if err != nil || len(errs) != 0 {
		t.Fatalf("unexpected failure %v %v", errs, err)
	}
	if b.ID == 0 || b.Nights != 7 || !b.AmountChannelFee.IsZero() {
		t.Errorf("unexpected booking %+v", b)
	}
}
