package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/go-chi/chi/v5"
)

// ListAccountsHandler godoc
// @Summary List the chart of accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Success 200 {array} models.Account
// @Router /api/accounts [get]
func ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := accountRepo.List(r.Context(), tenant(r))
	if err != nil {
		internalError(w, r, err, "could not fetch accounts")
		return
	}
	respond(w, r, http.StatusOK, accounts)
}

// CreateAccountHandler godoc
// @Summary Add an account to the chart of accounts
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param account body models.Account true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/accounts [post]
func CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var a models.Account
	if err := readJSON(w, r, &a); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	a.Administration = tenant(r)
	a.VW = strings.ToUpper(a.VW)
	if errs := validateAccount(a); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	created, err := accountRepo.Create(r.Context(), a)
	if errors.Is(err, repo.ErrDuplicatedValueUnique) {
		errorJSON(w, http.StatusConflict, "account already exists")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not create account")
		return
	}
	LedgerChanged(r.Context(), a.Administration)
	respond(w, r, http.StatusCreated, created)
}

// UpdateAccountHandler godoc
// @Summary Update an account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param code path string true "Account code"
// @Param account body models.Account true "Account"
// @Success 200 {object} models.Account
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/accounts/{code} [put]
func UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var a models.Account
	if err := readJSON(w, r, &a); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	a.Account = chi.URLParam(r, "code")
	a.Administration = tenant(r)
	a.VW = strings.ToUpper(a.VW)
	if errs := validateAccount(a); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	updated, err := accountRepo.Update(r.Context(), a)
	if errors.Is(err, repo.ErrAccountNotFound) {
		errorJSON(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not update account")
		return
	}
	LedgerChanged(r.Context(), a.Administration)
	respond(w, r, http.StatusOK, updated)
}

// DeleteAccountHandler godoc
// @Summary Delete an unused account
// @Tags accounts
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param code path string true "Account code"
// @Success 204 "Deleted successfully"
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/accounts/{code} [delete]
func DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	n, err := txRepo.CountByAccount(r.Context(), tenant(r), code)
	if err != nil {
		internalError(w, r, err, "could not delete account")
		return
	}
	if n > 0 {
		errorJSON(w, http.StatusConflict, repo.ErrAccountInUse.Error())
		return
	}

	err = accountRepo.Delete(r.Context(), tenant(r), code)
	if errors.Is(err, repo.ErrAccountNotFound) {
		errorJSON(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not delete account")
		return
	}
	LedgerChanged(r.Context(), tenant(r))
	w.WriteHeader(http.StatusNoContent)
}

// ListBankAccountsHandler godoc
// @Summary List the bank accounts of the administration
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Success 200 {array} models.BankAccount
// @Router /api/bank-accounts [get]
func ListBankAccountsHandler(w http.ResponseWriter, r *http.Request) {
	banks, err := bankRepo.List(r.Context(), tenant(r))
	if err != nil {
		internalError(w, r, err, "could not fetch bank accounts")
		return
	}
	respond(w, r, http.StatusOK, banks)
}

// CreateBankAccountHandler godoc
// @Summary Register an IBAN and the ledger account that books it
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param bank body models.BankAccount true "Bank account"
// @Success 201 {object} models.BankAccount
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/bank-accounts [post]
func CreateBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	var b models.BankAccount
	if err := readJSON(w, r, &b); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	b.Administration = tenant(r)
	b.IBAN = strings.ToUpper(strings.ReplaceAll(b.IBAN, " ", ""))
	errs := validateBankAccount(b)
	if len(errs) == 0 {
		if _, err := accountRepo.Get(r.Context(), b.Administration, b.Account); errors.Is(err, repo.ErrAccountNotFound) {
			errs = append(errs, models.FieldError{Field: "Account", Description: "account " + b.Account + " does not exist"})
		} else if err != nil {
			internalError(w, r, err, "could not create bank account")
			return
		}
	}
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	created, err := bankRepo.Create(r.Context(), b)
	if errors.Is(err, repo.ErrDuplicatedValueUnique) {
		errorJSON(w, http.StatusConflict, "IBAN already registered")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not create bank account")
		return
	}
	respond(w, r, http.StatusCreated, created)
}

// DeleteBankAccountHandler godoc
// @Summary Remove a bank account
// @Tags accounts
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param iban path string true "IBAN"
// @Success 204 "Deleted successfully"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/bank-accounts/{iban} [delete]
func DeleteBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	err := bankRepo.Delete(r.Context(), tenant(r), strings.ToUpper(chi.URLParam(r, "iban")))
	if errors.Is(err, repo.ErrBankAccountNotFound) {
		errorJSON(w, http.StatusNotFound, "bank account not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not delete bank account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
