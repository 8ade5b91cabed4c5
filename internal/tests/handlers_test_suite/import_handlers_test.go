package handlers_test_suite

import (
	"net/http"
	"testing"

	"github.com/PeterGeers/myadmin/internal/bankimport"
	handler "github.com/PeterGeers/myadmin/internal/http/handlers"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/pattern"
	"github.com/shopspring/decimal"
)

const rabobankCSV = `"IBAN/BBAN","Munt","BIC","Volgnr","Datum","Rentedatum","Bedrag","Saldo na trn","Tegenrekening IBAN/BBAN","Naam tegenpartij","Omschrijving-1","Omschrijving-2","Omschrijving-3"
"NL01RABO0123456789","EUR","RABONL2U","000000000000007001","2025-03-03","2025-03-03","-45,99","+954,01","NL22KPNB0000000001","KPN B.V.","Factuur maart","",""
"NL01RABO0123456789","EUR","RABONL2U","000000000000007002","2025-03-04","2025-03-04","+1.250,00","+2.204,01","NL33ABNA0000000002","Huurder","Huur maart","",""
`

func TestPreviewBankImportHandler(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	token := s.token(t, "admin", "secret")

	t.Run("Rabobank statement", func(t *testing.T) {
		w := s.upload("/api/import/bank", token, goodwin, "rabo.csv", rabobankCSV)
		expectStatus(t, w, http.StatusOK)

		p := decode[bankimport.Preview](t, w)
		if p.Format != "Rabobank" || p.BatchID == "" {
			t.Errorf("unexpected preview header: %+v", p)
		}
		if len(p.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(p.Rows))
		}
		if p.Rows[0].Transaction.Administration != goodwin {
			t.Errorf("expected rows of %s, got %s", goodwin, p.Rows[0].Transaction.Administration)
		}
	})

	t.Run("Unknown layout", func(t *testing.T) {
		w := s.upload("/api/import/bank", token, goodwin, "other.csv", "a,b,c\n1,2,3\n")
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Missing file", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/import/bank", token, goodwin, nil)
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Read-only user", func(t *testing.T) {
		reader := s.token(t, "reader", "secret")
		w := s.upload("/api/import/bank", reader, "", "rabo.csv", rabobankCSV)
		expectStatus(t, w, http.StatusForbidden)
	})
}

func TestCommitBankImportHandler(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	token := s.token(t, "admin", "secret")

	kpn := models.Transaction{
		TransactionDate:        models.NewDate(2025, 3, 3),
		TransactionDescription: "KPN B.V. Factuur maart",
		TransactionAmount:      decimal.RequireFromString("45.99"),
		Debet:                  "4020",
		Credit:                 "1002",
		Ref1:                   "NL01RABO0123456789",
		Ref2:                   "000000000000007001",
	}
	missing := kpn
	missing.Ref2 = "000000000000007002"
	missing.Debet = ""

	req := handler.CommitRequest{BatchID: "b1", Transactions: []models.Transaction{kpn, kpn, missing}}
	w := s.do(http.MethodPost, "/api/import/bank/commit", token, goodwin, req)
	expectStatus(t, w, http.StatusOK)

	res := decode[bankimport.CommitResult](t, w)
	if res.Imported != 1 || res.Skipped != 1 || len(res.Errors) != 1 {
		t.Fatalf("expected 1 imported, 1 skipped, 1 error, got %+v", res)
	}
	if res.Errors[0].Row != 3 {
		t.Errorf("expected error on row 3, got %+v", res.Errors[0])
	}

	t.Run("Committing again skips everything", func(t *testing.T) {
		req := handler.CommitRequest{Transactions: []models.Transaction{kpn}}
		res := decode[bankimport.CommitResult](t, s.do(http.MethodPost, "/api/import/bank/commit", token, goodwin, req))
		if res.Imported != 0 || res.Skipped != 1 {
			t.Errorf("expected duplicate to be skipped, got %+v", res)
		}
	})

	t.Run("Empty batch", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/import/bank/commit", token, goodwin, handler.CommitRequest{})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("Imported rows are listed", func(t *testing.T) {
		resp := decode[handler.TransactionsSearchResult](t, s.do(http.MethodGet, "/api/transactions", token, goodwin, nil))
		if resp.Meta.TotalCount != 1 {
			t.Errorf("expected 1 transaction, got %d", resp.Meta.TotalCount)
		}
	})
}

func TestPatternHandlers(t *testing.T) {
	s := newServer(t)
	s.seedChart(t)
	token := s.token(t, "reader", "secret")

	w := s.do(http.MethodGet, "/api/patterns/stats", token, "", nil)
	expectStatus(t, w, http.StatusOK)
	_ = decode[pattern.Stats](t, w)

	req := handler.AnalyzeRequest{Transactions: []models.Transaction{{
		TransactionDate:        models.NewDate(2025, 3, 3),
		TransactionDescription: "Onbekend",
		TransactionAmount:      decimal.NewFromInt(10),
		Credit:                 "1002",
		Ref1:                   "NL01RABO0123456789",
	}}}
	w = s.do(http.MethodPost, "/api/patterns/analyze", token, "", req)
	expectStatus(t, w, http.StatusOK)
	res := decode[handler.AnalyzeResult](t, w)
	if len(res.Transactions) != 1 || len(res.Predictions) != 1 {
		t.Errorf("expected one transaction and one prediction, got %+v", res)
	}
}
