package handlers

import (
	"net/http"
)

// HealthHandler godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} MessageResult
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, MessageResult{Message: "ok"})
}

// CacheStatusHandler godoc
// @Summary Load time, size and hit counters of the table caches
// @Tags cache
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Success 200 {object} CacheStatusResult
// @Router /api/cache/status [get]
func CacheStatusHandler(w http.ResponseWriter, r *http.Request) {
	var res CacheStatusResult
	if ledgerCache != nil {
		res.Ledger = ledgerCache.Status()
	}
	if bookingCache != nil {
		res.Bookings = bookingCache.Status()
	}
	respond(w, r, http.StatusOK, res)
}

// CacheRefreshHandler godoc
// @Summary Reload the table caches and drop the administration's reports
// @Tags cache
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Success 200 {object} CacheStatusResult
// @Failure 500 {object} middleware.ErrorResponse
// @Router /api/cache/refresh [post]
func CacheRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if ledgerCache != nil {
		if err := ledgerCache.Refresh(r.Context()); err != nil {
			internalError(w, r, err, "could not refresh ledger cache")
			return
		}
	}
	if bookingCache != nil {
		if err := bookingCache.Refresh(r.Context()); err != nil {
			internalError(w, r, err, "could not refresh booking cache")
			return
		}
	}
	if reportService != nil {
		reportService.Invalidate(r.Context(), tenant(r))
	}
	requestLog(r).Info("caches refreshed")
	CacheStatusHandler(w, r)
}
