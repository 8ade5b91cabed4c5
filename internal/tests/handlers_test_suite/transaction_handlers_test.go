package handlers_test_suite

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"os"
	"strings"
	"testing"

	handler "github.com/PeterGeers/myadmin/internal/http/handlers"
	mw "github.com/PeterGeers/myadmin/internal/http/middleware"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func validTransaction() handler.TransactionRequest {
	return handler.TransactionRequest{
		TransactionDate:        models.NewDate(2025, 3, 3),
		TransactionDescription: "KPN factuur maart",
		TransactionAmount:      decimal.RequireFromString("45.99"),
		Debet:                  "4020",
		Credit:                 "1002",
		ReferenceNumber:        "KPN",
	}
}

func TestCreateTransactionHandler_Valid(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	token := s.token(t, "admin", "secret")

	w := s.do(http.MethodPost, "/api/transactions", token, goodwin, validTransaction())
	expectStatus(t, w, http.StatusCreated)

	tx := decode[models.Transaction](t, w)
	if tx.ID == 0 {
		t.Error("expected an ID")
	}
	if tx.Administration != goodwin {
		t.Errorf("expected administration from tenant, got %q", tx.Administration)
	}
	if !tx.TransactionAmount.Equal(decimal.RequireFromString("45.99")) {
		t.Errorf("expected amount 45.99, got %s", tx.TransactionAmount)
	}
}

func TestCreateTransactionHandler_Invalid(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	token := s.token(t, "admin", "secret")

	tests := []struct {
		name           string
		mutate         func(*handler.TransactionRequest)
		expectedFields []string
	}{
		{"Zero amount", func(r *handler.TransactionRequest) { r.TransactionAmount = decimal.Zero }, []string{"TransactionAmount"}},
		{"Missing date and description", func(r *handler.TransactionRequest) {
			r.TransactionDate = models.Date{}
			r.TransactionDescription = ""
		}, []string{"TransactionDate", "TransactionDescription"}},
		{"Same account on both sides", func(r *handler.TransactionRequest) { r.Credit = r.Debet }, []string{"Credit"}},
		{"Unknown account", func(r *handler.TransactionRequest) { r.Debet = "9999" }, []string{"Debet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validTransaction()
			tt.mutate(&req)
			w := s.do(http.MethodPost, "/api/transactions", token, goodwin, req)
			expectStatus(t, w, http.StatusBadRequest)

			resp := decode[mw.ErrorResponse](t, w)
			got := map[string]bool{}
			for _, e := range resp.Errors {
				got[e.Field] = true
			}
			for _, f := range tt.expectedFields {
				if !got[f] {
					t.Errorf("expected error on %s, got %+v", f, resp.Errors)
				}
			}
		})
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	token := s.token(t, "admin", "secret")

	created := decode[models.Transaction](t, s.do(http.MethodPost, "/api/transactions", token, goodwin, validTransaction()))

	t.Run("Get", func(t *testing.T) {
		w := s.do(http.MethodGet, path("/api/transactions/%d", created.ID), token, goodwin, nil)
		expectStatus(t, w, http.StatusOK)
	})

	t.Run("Other administration cannot see it", func(t *testing.T) {
		w := s.do(http.MethodGet, path("/api/transactions/%d", created.ID), token, prive, nil)
		expectStatus(t, w, http.StatusNotFound)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/transactions/abc", token, goodwin, nil)
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Update", func(t *testing.T) {
		req := validTransaction()
		req.TransactionAmount = decimal.NewFromInt(50)
		w := s.do(http.MethodPut, path("/api/transactions/%d", created.ID), token, goodwin, req)
		expectStatus(t, w, http.StatusOK)
		if got := decode[models.Transaction](t, w); !got.TransactionAmount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("expected amount 50, got %s", got.TransactionAmount)
		}
	})

	t.Run("Account in use cannot be deleted", func(t *testing.T) {
		w := s.do(http.MethodDelete, "/api/accounts/4020", token, goodwin, nil)
		expectStatus(t, w, http.StatusConflict)
	})

	t.Run("Delete", func(t *testing.T) {
		w := s.do(http.MethodDelete, path("/api/transactions/%d", created.ID), token, goodwin, nil)
		expectStatus(t, w, http.StatusNoContent)

		w = s.do(http.MethodDelete, path("/api/transactions/%d", created.ID), token, goodwin, nil)
		expectStatus(t, w, http.StatusNotFound)
	})
}

func TestListTransactionsHandler_Filters(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	s.addTransaction(t, goodwin, models.NewDate(2025, 1, 10), "KPN januari", 40, "4020", "1002")
	s.addTransaction(t, goodwin, models.NewDate(2025, 2, 10), "KPN februari", 41, "4020", "1002")
	s.addTransaction(t, goodwin, models.NewDate(2025, 2, 20), "Huur februari", 1250, "1002", "8001")
	s.addTransaction(t, prive, models.NewDate(2025, 2, 20), "KPN prive", 10, "4020", "1002")
	token := s.token(t, "reader", "secret")

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantLen   int
	}{
		{"All of the administration", "", 3, 3},
		{"Date range", "?from=2025-02-01&to=2025-02-28", 2, 2},
		{"Account", "?account=8001", 1, 1},
		{"Search is case insensitive", "?search=kpn", 2, 2},
		{"Paging", "?limit=2&offset=2", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/transactions"+tt.query, token, "", nil)
			expectStatus(t, w, http.StatusOK)
			resp := decode[handler.TransactionsSearchResult](t, w)
			if resp.Meta.TotalCount != tt.wantTotal || len(resp.Data) != tt.wantLen {
				t.Errorf("expected %d/%d, got %d/%d", tt.wantLen, tt.wantTotal, len(resp.Data), resp.Meta.TotalCount)
			}
		})
	}

	t.Run("Newest first", func(t *testing.T) {
		resp := decode[handler.TransactionsSearchResult](t, s.do(http.MethodGet, "/api/transactions", token, "", nil))
		if resp.Data[0].TransactionDescription != "Huur februari" {
			t.Errorf("expected newest first, got %s", resp.Data[0].TransactionDescription)
		}
	})

	for _, q := range []string{"?from=31-01-2025", "?limit=0", "?offset=-1"} {
		t.Run("Bad query "+q, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/transactions"+q, token, "", nil)
			expectStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestExportTransactionsHandler(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	s.addTransaction(t, goodwin, models.NewDate(2025, 1, 10), "KPN januari", 40, "4020", "1002")
	s.addTransaction(t, goodwin, models.NewDate(2025, 2, 10), "KPN februari", 41, "4020", "1002")
	token := s.token(t, "reader", "secret")

	t.Run("CSV", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/transactions/export?format=csv&limit=1", token, "", nil)
		expectStatus(t, w, http.StatusOK)
		if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("expected text/csv, got %s", ct)
		}
		records, err := csv.NewReader(w.Body).ReadAll()
		if err != nil {
			t.Fatalf("invalid csv: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows ignoring limit, got %d records", len(records))
		}
		if records[1][4] != "41.00" {
			t.Errorf("expected amount 41.00, got %s", records[1][4])
		}
	})

	t.Run("XLSX", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/transactions/export?format=xlsx", token, "", nil)
		expectStatus(t, w, http.StatusOK)
		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		if err != nil {
			t.Fatalf("invalid workbook: %v", err)
		}
		defer f.Close()
		rows, err := f.GetRows("Transactions")
		if err != nil {
			t.Fatalf("read sheet: %v", err)
		}
		if len(rows) != 3 || rows[0][0] != "ID" {
			t.Errorf("unexpected rows: %v", rows)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/transactions/export?format=json", token, "", nil)
		expectStatus(t, w, http.StatusOK)
		if txs := decode[[]models.Transaction](t, w); len(txs) != 2 {
			t.Errorf("expected 2 transactions, got %d", len(txs))
		}
	})

	t.Run("Unknown format", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/transactions/export?format=pdf", token, "", nil)
		expectStatus(t, w, http.StatusBadRequest)
	})
}

func TestUploadDocumentHandler(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	tx := s.addTransaction(t, goodwin, models.NewDate(2025, 1, 10), "KPN januari", 40, "4020", "1002")
	token := s.token(t, "admin", "secret")

	w := s.upload(path("/api/transactions/%d/document", tx.ID), token, goodwin, "factuur.pdf", "%PDF-1.4")
	expectStatus(t, w, http.StatusOK)

	resp := decode[handler.DocumentResult](t, w)
	if !strings.HasPrefix(resp.URL, "file://") || resp.Transaction.Ref3 != resp.URL {
		t.Errorf("expected Ref3 to hold the document URL, got %+v", resp)
	}
	data, err := os.ReadFile(strings.TrimPrefix(resp.URL, "file://"))
	if err != nil || string(data) != "%PDF-1.4" {
		t.Errorf("document not stored: %v", err)
	}

	t.Run("Unknown transaction", func(t *testing.T) {
		w := s.upload("/api/transactions/999/document", token, goodwin, "factuur.pdf", "x")
		expectStatus(t, w, http.StatusNotFound)
	})
}
