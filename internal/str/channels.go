package str

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
)

const (
	ChannelAirbnb  = "Airbnb"
	ChannelBooking = "Booking.com"
)

var ErrUnknownExport = errors.New("unrecognised reservation export")

// Reservation is a parsed export row. Row is the 1-based line of the file,
// the header being row 1.
type Reservation struct {
	Row     int
	Booking models.Booking
}

type channelParser struct {
	channel  string
	required []string
	parse    func(c columns, row []string) (models.Booking, error)
}

var channels = []channelParser{
	{
		channel:  ChannelAirbnb,
		required: []string{"Confirmation code", "Status", "Start date", "End date", "Listing", "Earnings"},
		parse:    parseAirbnb,
	},
	{
		channel:  ChannelBooking,
		required: []string{"Book number", "Arrival", "Departure", "Status", "Price"},
		parse:    parseBookingCom,
	},
}

// ParseExport detects the channel of a reservation export from its header
// and parses every data row.
func ParseExport(rows [][]string) (string, []Reservation, []models.FieldError, error) {
	c := indexHeader(rows[0])
	for _, p := range channels {
		if !c.has(p.required...) {
			continue
		}
		var out []Reservation
		var errs []models.FieldError
		for i, row := range rows[1:] {
			rowNum := i + 2
			b, err := p.parse(c, row)
			if err != nil {
				errs = append(errs, models.FieldError{Description: fmt.Sprintf("row %d: %v", rowNum, err)})
				continue
			}
			b.Channel = p.channel
			out = append(out, Reservation{Row: rowNum, Booking: b})
		}
		return p.channel, out, errs, nil
	}
	return "", nil, nil, ErrUnknownExport
}

type columns map[string]int

func indexHeader(header []string) columns {
	idx := columns{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func (c columns) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[strings.ToLower(n)]; !ok {
			return false
		}
	}
	return true
}

func (c columns) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "02-01-2006", "2 January 2006"}

// parseDate accepts the date formats of the channel exports. Timestamps are
// cut to their date.
func parseDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[4] == '-' {
		s = s[:10]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("invalid date %q", s)
}

func optionalDate(s string) models.Date {
	d, _ := parseDate(s)
	return d
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func status(raw string) string {
	if strings.Contains(strings.ToLower(raw), "cancel") {
		return models.BookingCancelled
	}
	return ""
}

func stay(c columns, row []string, in, out string) (models.Date, models.Date, error) {
	checkin, err := parseDate(c.get(row, in))
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	checkout, err := parseDate(c.get(row, out))
	if err != nil {
		return models.Date{}, models.Date{}, err
	}
	return checkin, checkout, nil
}

func parseAirbnb(c columns, row []string) (models.Booking, error) {
	code := c.get(row, "Confirmation code")
	if code == "" {
		return models.Booking{}, errors.New("missing confirmation code")
	}
	checkin, checkout, err := stay(c, row, "Start date", "End date")
	if err != nil {
		return models.Booking{}, err
	}
	gross, err := models.ParseAmount(c.get(row, "Earnings"))
	if err != nil {
		return models.Booking{}, err
	}
	return models.Booking{
		ReservationCode: code,
		Status:          status(c.get(row, "Status")),
		GuestName:       c.get(row, "Guest name"),
		Phone:           c.get(row, "Contact"),
		Guests:          atoi(c.get(row, "# of adults")) + atoi(c.get(row, "# of children")),
		CheckinDate:     checkin,
		CheckoutDate:    checkout,
		ReservationDate: optionalDate(c.get(row, "Booked")),
		Listing:         c.get(row, "Listing"),
		AmountGross:     gross,
	}, nil
}

func parseBookingCom(c columns, row []string) (models.Booking, error) {
	code := c.get(row, "Book number")
	if code == "" {
		return models.Booking{}, errors.New("missing book number")
	}
	checkin, checkout, err := stay(c, row, "Arrival", "Departure")
	if err != nil {
		return models.Booking{}, err
	}
	gross, err := models.ParseAmount(c.get(row, "Price"))
	if err != nil {
		return models.Booking{}, err
	}
	fee := decimal.Zero
	if raw := c.get(row, "Commission amount"); raw != "" {
		if fee, err = models.ParseAmount(raw); err != nil {
			return models.Booking{}, err
		}
	}
	return models.Booking{
		ReservationCode:  code,
		Status:           status(c.get(row, "Status")),
		GuestName:        c.get(row, "Guest name(s)"),
		Guests:           atoi(c.get(row, "Persons")),
		CheckinDate:      checkin,
		CheckoutDate:     checkout,
		ReservationDate:  optionalDate(c.get(row, "Booked on")),
		Listing:          c.get(row, "Unit type"),
		AmountGross:      gross,
		AmountChannelFee: fee,
	}, nil
}
