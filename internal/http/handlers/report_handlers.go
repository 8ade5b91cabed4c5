package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/reports"
)

// reportError maps report errors onto responses.
func reportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reports.ErrInvalidPeriod):
		errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reports.ErrNothingToBook), errors.Is(err, reports.ErrAlreadyBooked):
		errorJSON(w, http.StatusConflict, err.Error())
	default:
		internalError(w, r, err, "could not build report")
	}
}

// yearParam defaults to the current year.
func yearParam(r *http.Request) (int, error) {
	if r.URL.Query().Get("year") == "" {
		return time.Now().Year(), nil
	}
	return queryInt(r, "year")
}

// BTWReportHandler godoc
// @Summary VAT return of a quarter
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param year query int true "Year"
// @Param quarter query int true "Quarter (1-4)"
// @Success 200 {object} reports.BTWReport
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/reports/btw [get]
func BTWReportHandler(w http.ResponseWriter, r *http.Request) {
	year, quarter, ok := yearQuarter(w, r)
	if !ok {
		return
	}
	rep, err := reportService.BTW(r.Context(), tenant(r), year, quarter)
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rep)
}

// BookBTWHandler godoc
// @Summary Book the VAT settlement of a quarter
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param year query int true "Year"
// @Param quarter query int true "Quarter (1-4)"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/reports/btw/book [post]
func BookBTWHandler(w http.ResponseWriter, r *http.Request) {
	year, quarter, ok := yearQuarter(w, r)
	if !ok {
		return
	}
	tx, err := reportService.BookBTW(r.Context(), tenant(r), year, quarter)
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, tx)
}

func yearQuarter(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := queryInt(r, "year")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	quarter, err := queryInt(r, "quarter")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return year, quarter, true
}

// AangifteIBHandler godoc
// @Summary Income tax overview of a year
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} reports.IBReport
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/reports/aangifte-ib [get]
func AangifteIBHandler(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := reportService.AangifteIB(r.Context(), tenant(r), year)
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rep)
}

// TouristTaxHandler godoc
// @Summary Tourist tax return of a year
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} reports.TouristTaxReport
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/reports/tourist-tax [get]
func TouristTaxHandler(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := reportService.TouristTax(r.Context(), tenant(r), year)
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rep)
}

// ActualsHandler godoc
// @Summary Account movements per period
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param years query string false "Comma separated years (defaults to the current year)"
// @Param group query string false "year, quarter or month"
// @Param vw query string false "Y for profit and loss accounts, N for balance sheet"
// @Success 200 {object} reports.ActualsReport
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/reports/actuals [get]
func ActualsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	years := []int{}
	for _, part := range strings.Split(q.Get("years"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "years must be comma separated numbers")
			return
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		years = append(years, time.Now().Year())
	}

	rep, err := reportService.Actuals(r.Context(), tenant(r), years, q.Get("group"), strings.ToUpper(q.Get("vw")))
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rep)
}

// BalanceHandler godoc
// @Summary Balance of every balance sheet account on a date
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} reports.BalanceReport
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/reports/balance [get]
func BalanceHandler(w http.ResponseWriter, r *http.Request) {
	date := models.DateOf(time.Now())
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid date format")
			return
		}
		date = d
	}
	rep, err := reportService.Balance(r.Context(), tenant(r), date)
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rep)
}

// BookingSummaryHandler godoc
// @Summary Short-term-rental revenue per listing and channel
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} reports.STRSummary
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/bookings/summary [get]
func BookingSummaryHandler(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := reportService.STRSummaryReport(r.Context(), tenant(r), year)
	if err != nil {
		reportError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rep)
}
