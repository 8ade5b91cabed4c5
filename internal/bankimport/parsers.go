package bankimport

import (
	"fmt"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
)

// StatementLine is one booked line of a bank statement. Amount is signed
// from the account holder's view: positive is money in.
type StatementLine struct {
	Row          int
	IBAN         string
	Bank         string
	Date         models.Date
	Amount       decimal.Decimal
	Counterparty string
	CounterIBAN  string
	Description  string
	BankRef      string
}

// RowError reports a line that could not be parsed or imported. Row is the
// 1-based line of the source file, where the header is row 1.
type RowError struct {
	Row         int    `json:"row"`
	Description string `json:"description"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Description)
}

// Options carries caller supplied values some formats lack.
type Options struct {
	IBAN string // account of a Revolut export
}

// Parser turns tabular statement rows into statement lines.
type Parser interface {
	Name() string
	Detect(header []string) bool
	Parse(rows [][]string, opts Options) ([]StatementLine, []RowError)
}

var parsers = []Parser{rabobankParser{}, ingParser{}, revolutParser{}}

type columns map[string]int

func indexHeader(header []string) columns {
	idx := columns{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func (c columns) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[strings.ToLower(n)]; !ok {
			return false
		}
	}
	return true
}

func (c columns) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Rabobank CSV export.
type rabobankParser struct{}

func (rabobankParser) Name() string { return "Rabobank" }

func (rabobankParser) Detect(header []string) bool {
	return indexHeader(header).has("IBAN/BBAN", "Volgnr", "Datum", "Bedrag")
}

func (p rabobankParser) Parse(rows [][]string, _ Options) ([]StatementLine, []RowError) {
	c := indexHeader(rows[0])
	var lines []StatementLine
	var errs []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		date, err := time.Parse("2006-01-02", c.get(row, "Datum"))
		if err != nil {
			errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid date %q", c.get(row, "Datum"))})
			continue
		}
		amount, err := models.ParseAmount(c.get(row, "Bedrag"))
		if err != nil {
			errs = append(errs, RowError{rowNum, err.Error()})
			continue
		}
		lines = append(lines, StatementLine{
			Row:          rowNum,
			IBAN:         c.get(row, "IBAN/BBAN"),
			Bank:         p.Name(),
			Date:         models.DateOf(date),
			Amount:       amount,
			Counterparty: c.get(row, "Naam tegenpartij"),
			CounterIBAN:  c.get(row, "Tegenrekening IBAN/BBAN"),
			Description:  joinNonEmpty(c.get(row, "Omschrijving-1"), c.get(row, "Omschrijving-2"), c.get(row, "Omschrijving-3")),
			BankRef:      c.get(row, "Volgnr"),
		})
	}
	return lines, errs
}

// ING CSV export (semicolon separated, Af/Bij column for the sign).
type ingParser struct{}

func (ingParser) Name() string { return "ING" }

func (ingParser) Detect(header []string) bool {
	return indexHeader(header).has("Datum", "Naam / Omschrijving", "Rekening", "Af Bij", "Bedrag (EUR)")
}

func (p ingParser) Parse(rows [][]string, _ Options) ([]StatementLine, []RowError) {
	c := indexHeader(rows[0])
	var lines []StatementLine
	var errs []RowError
	occurrences := map[string]int{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		date, err := time.Parse("20060102", c.get(row, "Datum"))
		if err != nil {
			errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid date %q", c.get(row, "Datum"))})
			continue
		}
		amount, err := models.ParseAmount(c.get(row, "Bedrag (EUR)"))
		if err != nil {
			errs = append(errs, RowError{rowNum, err.Error()})
			continue
		}
		switch strings.ToLower(c.get(row, "Af Bij")) {
		case "af":
			amount = amount.Abs().Neg()
		case "bij":
			amount = amount.Abs()
		default:
			errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid Af/Bij value %q", c.get(row, "Af Bij"))})
			continue
		}
		// ING has no sequence number. Date, amount and counter account plus
		// the occurrence of that combination within the export identify the
		// line, so a re-import of the same file yields the same references.
		key := fmt.Sprintf("%s-%s-%s", c.get(row, "Datum"), amount.StringFixed(2), c.get(row, "Tegenrekening"))
		occurrences[key]++
		lines = append(lines, StatementLine{
			Row:          rowNum,
			IBAN:         c.get(row, "Rekening"),
			Bank:         p.Name(),
			Date:         models.DateOf(date),
			Amount:       amount,
			Counterparty: c.get(row, "Naam / Omschrijving"),
			CounterIBAN:  c.get(row, "Tegenrekening"),
			Description:  joinNonEmpty(c.get(row, "Mededelingen")),
			BankRef:      fmt.Sprintf("%s-%d", key, occurrences[key]),
		})
	}
	return lines, errs
}

// Revolut account statement export.
type revolutParser struct{}

func (revolutParser) Name() string { return "Revolut" }

func (revolutParser) Detect(header []string) bool {
	return indexHeader(header).has("Type", "Started Date", "Completed Date", "Description", "Amount", "Fee", "State")
}

func (p revolutParser) Parse(rows [][]string, opts Options) ([]StatementLine, []RowError) {
	c := indexHeader(rows[0])
	if opts.IBAN == "" {
		return nil, []RowError{{1, "Revolut exports need the account IBAN"}}
	}
	var lines []StatementLine
	var errs []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		if !strings.EqualFold(c.get(row, "State"), "COMPLETED") {
			continue
		}
		completed := c.get(row, "Completed Date")
		ts, err := time.Parse("2006-01-02 15:04:05", completed)
		if err != nil {
			errs = append(errs, RowError{rowNum, fmt.Sprintf("invalid date %q", completed)})
			continue
		}
		amount, err := models.ParseAmount(c.get(row, "Amount"))
		if err != nil {
			errs = append(errs, RowError{rowNum, err.Error()})
			continue
		}
		fee := decimal.Zero
		if raw := c.get(row, "Fee"); raw != "" {
			if fee, err = models.ParseAmount(raw); err != nil {
				errs = append(errs, RowError{rowNum, err.Error()})
				continue
			}
		}
		lines = append(lines, StatementLine{
			Row:         rowNum,
			IBAN:        opts.IBAN,
			Bank:        p.Name(),
			Date:        models.DateOf(ts),
			Amount:      amount.Sub(fee),
			Description: joinNonEmpty(c.get(row, "Type"), c.get(row, "Description")),
			BankRef:     c.get(row, "Started Date") + " " + c.get(row, "Description"),
		})
	}
	return lines, errs
}

// genericColumns is the native export layout of transactions.
var genericColumns = []string{"TransactionDate", "TransactionDescription", "TransactionAmount", "Debet", "Credit"}

func isGeneric(header []string) bool {
	return indexHeader(header).has(genericColumns...)
}

// parseGeneric reads rows that already are transactions. Amounts must be
// positive and dates ISO formatted. Each preview row keeps its line in the
// source file.
func parseGeneric(rows [][]string, administration, filename string) ([]PreviewRow, []RowError) {
	c := indexHeader(rows[0])
	var out []PreviewRow
	var errs []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		date, err := models.ParseDate(c.get(row, "TransactionDate"))
		if err != nil {
			errs = append(errs, RowError{rowNum, err.Error()})
			continue
		}
		amount, err := models.ParseAmount(c.get(row, "TransactionAmount"))
		if err != nil {
			errs = append(errs, RowError{rowNum, err.Error()})
			continue
		}
		ref4 := c.get(row, "Ref4")
		if ref4 == "" {
			ref4 = filename
		}
		out = append(out, PreviewRow{Row: rowNum, Transaction: models.Transaction{
			TransactionNumber:      c.get(row, "TransactionNumber"),
			TransactionDate:        date,
			TransactionDescription: c.get(row, "TransactionDescription"),
			TransactionAmount:      amount,
			Debet:                  c.get(row, "Debet"),
			Credit:                 c.get(row, "Credit"),
			ReferenceNumber:        c.get(row, "ReferenceNumber"),
			Ref1:                   c.get(row, "Ref1"),
			Ref2:                   c.get(row, "Ref2"),
			Ref3:                   c.get(row, "Ref3"),
			Ref4:                   ref4,
			Administration:         administration,
		}})
	}
	return out, errs
}
