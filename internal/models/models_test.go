package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDate_JSON(t *testing.T) {
	var tx Transaction
	if err := json.Unmarshal([]byte(`{"transaction_date":"2025-03-14"}`), &tx); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !tx.TransactionDate.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", tx.TransactionDate)
	}

	out, _ := json.Marshal(tx.TransactionDate)
	if string(out) != `"2025-03-14"` {
		t.Errorf("expected \"2025-03-14\", got %s", out)
	}

	if err := json.Unmarshal([]byte(`{"transaction_date":"14-03-2025"}`), &tx); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan([]byte("2024-12-31 00:00:00")); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if d.String() != "2024-12-31" {
		t.Errorf("expected 2024-12-31, got %s", d)
	}
	if err := d.Scan(time.Date(2024, 2, 29, 13, 0, 0, 0, time.UTC)); err != nil || d.String() != "2024-02-29" {
		t.Errorf("unexpected scan result %s, %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestQuarterBounds(t *testing.T) {
	start, end := QuarterBounds(2024, 1)
	if start.String() != "2024-01-01" || end.String() != "2024-03-31" {
		t.Errorf("unexpected Q1 bounds %s..%s", start, end)
	}
	start, end = QuarterBounds(2024, 4)
	if start.String() != "2024-10-01" || end.String() != "2024-12-31" {
		t.Errorf("unexpected Q4 bounds %s..%s", start, end)
	}
	if NewDate(2024, time.August, 5).Quarter() != 3 {
		t.Error("expected August in Q3")
	}
}

func TestExpandLedger(t *testing.T) {
	accounts := []Account{
		{Account: "1002", AccountName: "Rabobank", VW: VWBalance, Administration: "GoodwinSolutions"},
		{Account: "4010", AccountName: "Kantoorkosten", VW: VWProfitLoss, Administration: "GoodwinSolutions"},
		{Account: "4010", AccountName: "Other tenant", VW: VWProfitLoss, Administration: "PeterPrive"},
	}
	txs := []Transaction{
		{ID: 1, TransactionDate: NewDate(2025, 1, 5), TransactionAmount: decimal.RequireFromString("12.50"),
			Debet: "4010", Credit: "1002", Administration: "GoodwinSolutions"},
		{ID: 2, TransactionDate: NewDate(2025, 1, 6), TransactionAmount: decimal.RequireFromString("3"),
			Debet: "9999", Credit: "", Administration: "GoodwinSolutions"},
	}

	entries := ExpandLedger(txs, accounts)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].Reknum != "4010" || !entries[0].Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("unexpected debet entry %+v", entries[0])
	}
	if entries[0].AccountName != "Kantoorkosten" {
		t.Errorf("expected account of the same administration, got %s", entries[0].AccountName)
	}
	if entries[1].Reknum != "1002" || !entries[1].Amount.Equal(decimal.RequireFromString("-12.50")) {
		t.Errorf("unexpected credit entry %+v", entries[1])
	}
	if entries[1].Quarter() != 1 || entries[1].Year() != 2025 || entries[1].Month() != 1 {
		t.Errorf("unexpected period of entry %+v", entries[1])
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		roles []string
		role  string
		want  bool
	}{
		{[]string{RoleFinanceCRUD}, RoleFinanceRead, true},
		{[]string{RoleFinanceRead}, RoleFinanceCRUD, false},
		{[]string{RoleSTRCRUD}, RoleSTRRead, true},
		{[]string{RoleSTRCRUD}, RoleFinanceRead, false},
		{[]string{RoleSysAdmin}, RoleFinanceExport, true},
		{nil, RoleSTRRead, false},
	}
	for _, tt := range tests {
		if got := HasRole(tt.roles, tt.role); got != tt.want {
			t.Errorf("HasRole(%v, %s) = %v, want %v", tt.roles, tt.role, got, tt.want)
		}
	}
}
