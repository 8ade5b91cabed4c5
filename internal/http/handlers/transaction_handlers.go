package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const exportPageSize = 1000

func transactionFilter(administration string, q url.Values) (repo.TransactionFilter, error) {
	from, err := parseDatePtr(q.Get("from"))
	if err != nil {
		return repo.TransactionFilter{}, errors.New("invalid from date format")
	}
	to, err := parseDatePtr(q.Get("to"))
	if err != nil {
		return repo.TransactionFilter{}, errors.New("invalid to date format")
	}
	limit, offset, err := parsePaging(q)
	if err != nil {
		return repo.TransactionFilter{}, err
	}
	return repo.TransactionFilter{
		Administration: administration,
		From:           from,
		To:             to,
		Account:        q.Get("account"),
		Search:         q.Get("search"),
		Reference:      q.Get("reference"),
		Limit:          limit,
		Offset:         offset,
	}, nil
}

// ListTransactionsHandler godoc
// @Summary Filter and paginate transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param account query string false "Account on either side"
// @Param search query string false "Description contains"
// @Param reference query string false "Reference number"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} TransactionsSearchResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/transactions [get]
func ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(tenant(r), r.URL.Query())
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, total, err := txRepo.Filter(r.Context(), filter)
	if err != nil {
		internalError(w, r, err, "could not filter transactions")
		return
	}
	respond(w, r, http.StatusOK, TransactionsSearchResult{Data: txs, Meta: Meta{TotalCount: total}})
}

// CreateTransactionHandler godoc
// @Summary Create a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param transaction body TransactionRequest true "Transaction to add"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/transactions [post]
func CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := readJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	tx := req.toModel(tenant(r))
	errs, err := repo.ValidateTransaction(r.Context(), accountRepo, tx)
	if err != nil {
		internalError(w, r, err, "could not validate transaction")
		return
	}
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	created, err := txRepo.Create(r.Context(), tx)
	if err != nil {
		internalError(w, r, err, "could not create transaction")
		return
	}
	LedgerChanged(r.Context(), created.Administration)
	respond(w, r, http.StatusCreated, created)
}

// GetTransactionHandler godoc
// @Summary Get transaction by ID
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/transactions/{id} [get]
func GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}
	tx, err := txRepo.GetByID(r.Context(), tenant(r), id)
	if errors.Is(err, repo.ErrTransactionNotFound) {
		errorJSON(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not fetch transaction")
		return
	}
	respond(w, r, http.StatusOK, tx)
}

// UpdateTransactionHandler godoc
// @Summary Update a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Transaction ID"
// @Param transaction body TransactionRequest true "Updated transaction"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/transactions/{id} [put]
func UpdateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}
	var req TransactionRequest
	if err := readJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	tx := req.toModel(tenant(r))
	tx.ID = id
	errs, err := repo.ValidateTransaction(r.Context(), accountRepo, tx)
	if err != nil {
		internalError(w, r, err, "could not validate transaction")
		return
	}
	if len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	updated, err := txRepo.Update(r.Context(), tx)
	if errors.Is(err, repo.ErrTransactionNotFound) {
		errorJSON(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not update transaction")
		return
	}
	LedgerChanged(r.Context(), updated.Administration)
	respond(w, r, http.StatusOK, updated)
}

// DeleteTransactionHandler godoc
// @Summary Delete a transaction
// @Tags transactions
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Transaction ID"
// @Success 204 "Deleted successfully"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/transactions/{id} [delete]
func DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}
	err = txRepo.Delete(r.Context(), tenant(r), id)
	if errors.Is(err, repo.ErrTransactionNotFound) {
		errorJSON(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not delete transaction")
		return
	}
	LedgerChanged(r.Context(), tenant(r))
	w.WriteHeader(http.StatusNoContent)
}

// exportRows pages through every transaction matching filter, ignoring
// the caller's limit and offset.
func exportRows(r *http.Request, filter repo.TransactionFilter) ([]models.Transaction, error) {
	var all []models.Transaction
	limit := exportPageSize
	for offset := 0; ; offset += limit {
		o := offset
		filter.Limit, filter.Offset = &limit, &o
		page, total, err := txRepo.Filter(r.Context(), filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

var exportHeader = []string{
	"ID", "TransactionNumber", "TransactionDate", "TransactionDescription", "TransactionAmount",
	"Debet", "Credit", "ReferenceNumber", "Ref1", "Ref2", "Ref3", "Ref4", "Administration",
}

func exportRecord(tx models.Transaction) []string {
	return []string{
		fmt.Sprint(tx.ID), tx.TransactionNumber, tx.TransactionDate.String(), tx.TransactionDescription,
		tx.TransactionAmount.StringFixed(2), tx.Debet, tx.Credit, tx.ReferenceNumber,
		tx.Ref1, tx.Ref2, tx.Ref3, tx.Ref4, tx.Administration,
	}
}

// ExportTransactionsHandler godoc
// @Summary Export transactions
// @Tags transactions
// @Produce text/csv,application/json,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param format query string true "Export format (csv, json or xlsx)"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param account query string false "Account on either side"
// @Param search query string false "Description contains"
// @Success 200 {file} file
// @Failure 400 {object} middleware.ErrorResponse
// @Router /api/transactions/export [get]
func ExportTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "csv" && format != "json" && format != "xlsx" {
		errorJSON(w, http.StatusBadRequest, "format must be 'csv', 'json' or 'xlsx'")
		return
	}
	filter, err := transactionFilter(tenant(r), r.URL.Query())
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := exportRows(r, filter)
	if err != nil {
		internalError(w, r, err, "could not export transactions")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	filename := "transactions-" + strings.ToLower(tenant(r))
	switch format {
	case "json":
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.json"`)
		respond(w, r, http.StatusOK, txs)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.csv"`)

		csvWriter := csv.NewWriter(w)
		_ = csvWriter.Write(exportHeader)
		for _, tx := range txs {
			_ = csvWriter.Write(exportRecord(tx))
		}
		csvWriter.Flush()
	case "xlsx":
		f, err := transactionsWorkbook(txs)
		if err != nil {
			internalError(w, r, err, "could not export transactions")
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
		if err := f.Write(w); err != nil {
			requestLog(r).WithError(err).Warn("failed to write workbook")
		}
	}
}

func transactionsWorkbook(txs []models.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Transactions"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, err
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}
	for i, tx := range txs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		amount, _ := tx.TransactionAmount.Float64()
		row := []any{
			tx.ID, tx.TransactionNumber, tx.TransactionDate.String(), tx.TransactionDescription, amount,
			tx.Debet, tx.Credit, tx.ReferenceNumber, tx.Ref1, tx.Ref2, tx.Ref3, tx.Ref4, tx.Administration,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// UploadDocumentHandler godoc
// @Summary Attach a source document to a transaction
// @Tags transactions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param X-Tenant header string false "Administration"
// @Param id path int true "Transaction ID"
// @Param file formData file true "Document"
// @Success 200 {object} DocumentResult
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/transactions/{id}/document [post]
func UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid transaction ID")
		return
	}
	tx, err := txRepo.GetByID(r.Context(), tenant(r), id)
	if errors.Is(err, repo.ErrTransactionNotFound) {
		errorJSON(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not fetch transaction")
		return
	}

	name, data, contentType, err := readUpload(w, r)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := docStore.Put(r.Context(), tx.Administration, name, contentType, bytes.NewReader(data))
	if err != nil {
		internalError(w, r, err, "could not store document")
		return
	}

	tx.Ref3 = u
	updated, err := txRepo.Update(r.Context(), tx)
	if err != nil {
		internalError(w, r, err, "could not update transaction")
		return
	}
	requestLog(r).WithFields(logrus.Fields{"transaction_id": id, "url": u}).Info("document stored")
	respond(w, r, http.StatusOK, DocumentResult{URL: u, Transaction: updated})
}
