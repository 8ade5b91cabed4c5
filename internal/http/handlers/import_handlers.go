package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/bankimport"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/pattern"
	"github.com/sirupsen/logrus"
)

// PreviewBankImportHandler godoc
// @Summary Parse a bank statement and preview the transactions
// @Description Accepts Rabobank, ING and Revolut CSV, generic CSV/XLSX/XLS and CAMT.053 XML.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param file formData file true "Statement file"
// @Param iban query string false "Own IBAN (Revolut exports carry none)"
// @Success 200 {object} bankimport.Preview
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/import/bank [post]
func PreviewBankImportHandler(w http.ResponseWriter, r *http.Request) {
	name, data, _, err := readUpload(w, r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := bankimport.Options{IBAN: strings.ToUpper(strings.ReplaceAll(r.URL.Query().Get("iban"), " ", ""))}

	preview, err := importer.Preview(r.Context(), tenant(r), name, data, opts)
	switch {
	case errors.Is(err, bankimport.ErrUnknownFormat), errors.Is(err, bankimport.ErrUnreadable):
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		internalError(w, r, err, "could not preview statement")
		return
	}
	respond(w, r, http.StatusOK, preview)
}

// CommitBankImportHandler godoc
// @Summary Store previewed (and possibly edited) transactions
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param body body CommitRequest true "Transactions to store"
// @Success 200 {object} bankimport.CommitResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/import/bank/commit [post]
func CommitBankImportHandler(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := decodeLarge(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	if len(req.Transactions) == 0 {
		errorJSON(w, http.StatusBadRequest, "no transactions to import")
		return
	}

	result, err := importer.Commit(r.Context(), tenant(r), req.Transactions)
	if err != nil {
		internalError(w, r, err, "could not import transactions")
		return
	}
	requestLog(r).WithFields(logrus.Fields{"batch_id": req.BatchID, "imported": result.Imported}).Info("bank import committed")
	respond(w, r, http.StatusOK, result)
}

// AnalyzePatternsHandler godoc
// @Summary Predict missing reference and accounts for transactions
// @Tags patterns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param body body AnalyzeRequest true "Transactions"
// @Success 200 {object} AnalyzeResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/patterns/analyze [post]
func AnalyzePatternsHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := decodeLarge(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}

	until := models.DateOf(time.Now())
	for _, tx := range req.Transactions {
		if tx.TransactionDate.After(until) {
			until = tx.TransactionDate
		}
	}
	a, err := pattern.Build(r.Context(), txRepo, bankRepo, tenant(r), until)
	if err != nil {
		internalError(w, r, err, "could not analyze patterns")
		return
	}
	txs := req.Transactions
	if txs == nil {
		txs = []models.Transaction{}
	}
	predictions := a.Apply(txs)
	respond(w, r, http.StatusOK, AnalyzeResult{Transactions: txs, Predictions: predictions})
}

// PatternStatsHandler godoc
// @Summary Statistics of the patterns learned from recent history
// @Tags patterns
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Success 200 {object} pattern.Stats
// @Router /api/patterns/stats [get]
func PatternStatsHandler(w http.ResponseWriter, r *http.Request) {
	a, err := pattern.Build(r.Context(), txRepo, bankRepo, tenant(r), models.DateOf(time.Now()))
	if err != nil {
		internalError(w, r, err, "could not analyze patterns")
		return
	}
	respond(w, r, http.StatusOK, a.Stats())
}
