package models

import "strings"

// FieldError describes one invalid field of a request or imported row.
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Validate checks the fields of a transaction that need no lookups.
func (tx Transaction) Validate() []FieldError {
	errs := []FieldError{}
	if tx.TransactionDate.IsZero() {
		errs = append(errs, FieldError{Field: "TransactionDate", Description: "TransactionDate is required"})
	}
	if strings.TrimSpace(tx.TransactionDescription) == "" {
		errs = append(errs, FieldError{Field: "TransactionDescription", Description: "TransactionDescription is required"})
	}
	if !tx.TransactionAmount.IsPositive() {
		errs = append(errs, FieldError{Field: "TransactionAmount", Description: "TransactionAmount must be greater than zero"})
	}
	if strings.TrimSpace(tx.Debet) == "" {
		errs = append(errs, FieldError{Field: "Debet", Description: "Debet is required"})
	}
	if strings.TrimSpace(tx.Credit) == "" {
		errs = append(errs, FieldError{Field: "Credit", Description: "Credit is required"})
	}
	if tx.Debet != "" && tx.Debet == tx.Credit {
		errs = append(errs, FieldError{Field: "Credit", Description: "Debet and Credit must differ"})
	}
	return errs
}

// Validate checks a booking before its derived fields are calculated.
func (b Booking) Validate() []FieldError {
	errs := []FieldError{}
	if strings.TrimSpace(b.Channel) == "" {
		errs = append(errs, FieldError{Field: "Channel", Description: "Channel is required"})
	}
	if strings.TrimSpace(b.Listing) == "" {
		errs = append(errs, FieldError{Field: "Listing", Description: "Listing is required"})
	}
	if b.CheckinDate.IsZero() || b.CheckoutDate.IsZero() {
		errs = append(errs, FieldError{Field: "CheckinDate", Description: "CheckinDate and CheckoutDate are required"})
	} else if !b.CheckoutDate.After(b.CheckinDate) {
		errs = append(errs, FieldError{Field: "CheckoutDate", Description: "CheckoutDate must be after CheckinDate"})
	}
	if b.AmountGross.IsNegative() {
		errs = append(errs, FieldError{Field: "AmountGross", Description: "AmountGross cannot be negative"})
	}
	switch b.Status {
	case "", BookingRealised, BookingPlanned, BookingCancelled:
	default:
		errs = append(errs, FieldError{Field: "Status", Description: "Status must be realised, planned or cancelled"})
	}
	return errs
}
