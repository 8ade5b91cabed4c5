package models

import "github.com/shopspring/decimal"

const (
	BookingRealised  = "realised"
	BookingPlanned   = "planned"
	BookingCancelled = "cancelled"
)

// Booking is a short-term-rental reservation (bnb table).
type Booking struct {
	ID                    int             `json:"id" db:"ID"`
	SourceFile            string          `json:"source_file" db:"sourceFile"`
	Channel               string          `json:"channel" db:"channel"`
	Listing               string          `json:"listing" db:"listing"`
	CheckinDate           Date            `json:"checkin_date" db:"checkinDate"`
	CheckoutDate          Date            `json:"checkout_date" db:"checkoutDate"`
	Nights                int             `json:"nights" db:"nights"`
	Guests                int             `json:"guests" db:"guests"`
	AmountGross           decimal.Decimal `json:"amount_gross" db:"amountGross"`
	AmountNett            decimal.Decimal `json:"amount_nett" db:"amountNett"`
	AmountChannelFee      decimal.Decimal `json:"amount_channel_fee" db:"amountChannelFee"`
	AmountTouristTax      decimal.Decimal `json:"amount_tourist_tax" db:"amountTouristTax"`
	AmountVat             decimal.Decimal `json:"amount_vat" db:"amountVat"`
	GuestName             string          `json:"guest_name" db:"guestName"`
	Phone                 string          `json:"phone" db:"phone"`
	ReservationCode       string          `json:"reservation_code" db:"reservationCode"`
	ReservationDate       Date            `json:"reservation_date" db:"reservationDate"`
	Status                string          `json:"status" db:"status"`
	PricePerNight         decimal.Decimal `json:"price_per_night" db:"pricePerNight"`
	DaysBeforeReservation int             `json:"days_before_reservation" db:"daysBeforeReservation"`
	AddInfo               string          `json:"add_info" db:"addInfo"`
	Year                  int             `json:"year" db:"year"`
	Quarter               int             `json:"quarter" db:"q"`
	Month                 int             `json:"month" db:"m"`
	Administration        string          `json:"administration" db:"administration"`
}
