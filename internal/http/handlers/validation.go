package handlers

import (
	"regexp"
	"strings"

	"github.com/PeterGeers/myadmin/internal/models"
)

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{8,30}$`)

func validateAccount(a models.Account) []models.FieldError {
	errs := []models.FieldError{}
	if strings.TrimSpace(a.Account) == "" {
		errs = append(errs, models.FieldError{Field: "Account", Description: "Account is required"})
	}
	if strings.TrimSpace(a.AccountName) == "" {
		errs = append(errs, models.FieldError{Field: "AccountName", Description: "AccountName is required"})
	}
	if a.VW != models.VWProfitLoss && a.VW != models.VWBalance {
		errs = append(errs, models.FieldError{Field: "VW", Description: "VW must be Y or N"})
	}
	return errs
}

func validateBankAccount(b models.BankAccount) []models.FieldError {
	errs := []models.FieldError{}
	if !ibanPattern.MatchString(b.IBAN) {
		errs = append(errs, models.FieldError{Field: "IBAN", Description: "IBAN is invalid"})
	}
	if strings.TrimSpace(b.Account) == "" {
		errs = append(errs, models.FieldError{Field: "Account", Description: "Account is required"})
	}
	return errs
}

func validateUser(req CreateUserRequest) []models.FieldError {
	errs := []models.FieldError{}
	if len(strings.TrimSpace(req.Username)) < 3 {
		errs = append(errs, models.FieldError{Field: "Username", Description: "Username must have at least 3 characters"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, models.FieldError{Field: "Password", Description: "Password must have at least 6 characters"})
	}
	for _, role := range req.Roles {
		if !models.KnownRole(role) {
			errs = append(errs, models.FieldError{Field: "Roles", Description: "unknown role " + role})
		}
	}
	if len(req.Tenants) == 0 {
		errs = append(errs, models.FieldError{Field: "Tenants", Description: "at least one tenant is required"})
	}
	return errs
}
