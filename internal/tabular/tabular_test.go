package tabular

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestRead_CSV(t *testing.T) {
	data := []byte("\xef\xbb\xbf\"Datum\";\"Bedrag\"\n\"20250301\";\"12,50\"\n;\n")
	rows, err := Read("ing.CSV", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Datum" || rows[1][1] != "12,50" {
		t.Errorf("unexpected rows %v", rows)
	}

	rows, err = Read("rabo.csv", []byte("a,b,c\n1,\"2,5\",3\n"))
	if err != nil || len(rows[1]) != 3 || rows[1][1] != "2,5" {
		t.Errorf("expected comma delimited row, got %v (%v)", rows, err)
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := Read("empty.csv", []byte("Datum,Bedrag\n")); err != ErrNoDataRows {
		t.Errorf("expected ErrNoDataRows, got %v", err)
	}
	if _, err := Read("statement.pdf", []byte("%PDF")); err == nil {
		t.Error("expected unsupported file type error")
	}
	if _, err := Read("broken.xlsx", []byte("not a zip")); err == nil {
		t.Error("expected xlsx open error")
	}
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"Book number", "Arrival", "Price"})
	f.SetSheetRow(sheet, "A2", &[]any{"4711", "2025-07-01", "EUR 450.00"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	rows, err := Read("bookings.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Book number" || rows[1][2] != "EUR 450.00" {
		t.Errorf("unexpected rows %v", rows)
	}
}
