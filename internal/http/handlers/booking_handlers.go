package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/str"
	"github.com/sirupsen/logrus"
)

func bookingFilter(administration string, q url.Values) (repo.BookingFilter, error) {
	year, err := parseIntPtr(q.Get("year"))
	if err != nil {
		return repo.BookingFilter{}, errors.New("year must be a number")
	}
	from, err := parseDatePtr(q.Get("from"))
	if err != nil {
		return repo.BookingFilter{}, errors.New("invalid from date format")
	}
	to, err := parseDatePtr(q.Get("to"))
	if err != nil {
		return repo.BookingFilter{}, errors.New("invalid to date format")
	}
	limit, offset, err := parsePaging(q)
	if err != nil {
		return repo.BookingFilter{}, err
	}
	return repo.BookingFilter{
		Administration: administration,
		Year:           year,
		Channel:        q.Get("channel"),
		Listing:        q.Get("listing"),
		Status:         q.Get("status"),
		From:           from,
		To:             to,
		Limit:          limit,
		Offset:         offset,
	}, nil
}

// ListBookingsHandler godoc
// @Summary Filter and paginate short-term-rental bookings
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param year query int false "Checkin year"
// @Param channel query string false "Channel"
// @Param listing query string false "Listing"
// @Param status query string false "realised, planned or cancelled"
// @Param from query string false "Checkin on or after (YYYY-MM-DD)"
// @Param to query string false "Checkin on or before (YYYY-MM-DD)"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} BookingsSearchResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/bookings [get]
func ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(tenant(r), r.URL.Query())
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	list, total, err := bookingRepo.Filter(r.Context(), filter)
	if err != nil {
		internalError(w, r, err, "could not filter bookings")
		return
	}
	respond(w, r, http.StatusOK, BookingsSearchResult{Data: list, Meta: Meta{TotalCount: total}})
}

// CreateBookingHandler godoc
// @Summary Create a booking
// @Description Nights, net amount, VAT, tourist tax and the period fields are derived.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param booking body models.Booking true "Booking"
// @Success 201 {object} models.Booking
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/bookings [post]
func CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var b models.Booking
	if err := readJSON(w, r, &b); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	b.ID = 0
	b.Administration = tenant(r)

	created, errs, err := bookings.Create(r.Context(), b)
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}
	if errors.Is(err, repo.ErrDuplicatedValueUnique) {
		errorJSON(w, http.StatusConflict, "reservation already exists")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not create booking")
		return
	}
	respond(w, r, http.StatusCreated, created)
}

// GetBookingHandler godoc
// @Summary Get booking by ID
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/bookings/{id} [get]
func GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid booking ID")
		return
	}
	b, err := bookingRepo.GetByID(r.Context(), tenant(r), id)
	if errors.Is(err, repo.ErrBookingNotFound) {
		errorJSON(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not fetch booking")
		return
	}
	respond(w, r, http.StatusOK, b)
}

// UpdateBookingHandler godoc
// @Summary Update a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Booking ID"
// @Param booking body models.Booking true "Booking"
// @Success 200 {object} models.Booking
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/bookings/{id} [put]
func UpdateBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid booking ID")
		return
	}
	var b models.Booking
	if err := readJSON(w, r, &b); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	b.ID = id
	b.Administration = tenant(r)

	updated, errs, err := bookings.Update(r.Context(), b)
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}
	if errors.Is(err, repo.ErrBookingNotFound) {
		errorJSON(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not update booking")
		return
	}
	respond(w, r, http.StatusOK, updated)
}

// DeleteBookingHandler godoc
// @Summary Delete a booking
// @Tags bookings
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Booking ID"
// @Success 204 "Deleted successfully"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/bookings/{id} [delete]
func DeleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid booking ID")
		return
	}
	err = bookings.Delete(r.Context(), tenant(r), id)
	if errors.Is(err, repo.ErrBookingNotFound) {
		errorJSON(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not delete booking")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportBookingsHandler godoc
// @Summary Import an Airbnb or Booking.com reservation export
// @Tags bookings
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param file formData file true "Export file (CSV or XLSX)"
// @Param mode query string false "skip (default) or update existing reservations"
// @Success 200 {object} str.ImportResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/bookings/import [post]
func ImportBookingsHandler(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != str.ModeSkip && mode != str.ModeUpdate {
		errorJSON(w, http.StatusBadRequest, "mode must be skip or update")
		return
	}
	name, data, _, err := readUpload(w, r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := bookings.Import(r.Context(), tenant(r), name, data, mode)
	switch {
	case errors.Is(err, str.ErrUnknownExport), errors.Is(err, str.ErrUnreadable):
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		internalError(w, r, err, "could not import bookings")
		return
	}
	requestLog(r).WithFields(logrus.Fields{
		"channel":  result.Channel,
		"imported": result.Imported,
		"rejected": len(result.Errors),
	}).Info("bookings imported")
	respond(w, r, http.StatusOK, result)
}
