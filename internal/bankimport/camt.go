package bankimport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/beevik/etree"
)

const camtFormat = "CAMT.053"

// ParseCAMT reads the booked entries of a CAMT.053 statement. Rows number
// the entries starting at 2 so errors read like the tabular formats.
func ParseCAMT(data []byte) ([]StatementLine, []RowError, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, nil, fmt.Errorf("parse xml: %w", err)
	}
	stmts := doc.FindElements("//BkToCstmrStmt/Stmt")
	if len(stmts) == 0 {
		return nil, nil, errors.New("no CAMT.053 statement found")
	}

	var lines []StatementLine
	var errs []RowError
	row := 1
	for _, stmt := range stmts {
		iban := text(stmt, "Acct/Id/IBAN")
		for _, ntry := range stmt.SelectElements("Ntry") {
			row++
			line, err := camtEntry(ntry, iban)
			if err != nil {
				errs = append(errs, RowError{row, err.Error()})
				continue
			}
			line.Row = row
			lines = append(lines, line)
		}
	}
	return lines, errs, nil
}

func camtEntry(ntry *etree.Element, iban string) (StatementLine, error) {
	amount, err := models.ParseAmount(text(ntry, "Amt"))
	if err != nil {
		return StatementLine{}, err
	}
	switch text(ntry, "CdtDbtInd") {
	case "DBIT":
		amount = amount.Abs().Neg()
	case "CRDT":
		amount = amount.Abs()
	default:
		return StatementLine{}, fmt.Errorf("invalid CdtDbtInd %q", text(ntry, "CdtDbtInd"))
	}

	raw := text(ntry, "BookgDt/Dt")
	if raw == "" {
		raw = text(ntry, "BookgDt/DtTm")
	}
	if len(raw) > len(models.DateLayout) {
		raw = raw[:len(models.DateLayout)]
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return StatementLine{}, err
	}

	ref := text(ntry, "AcctSvcrRef")
	if ref == "" {
		ref = text(ntry, "NtryRef")
	}

	// Money in names the debtor as counterparty, money out the creditor.
	party := "Cdtr"
	if amount.IsPositive() {
		party = "Dbtr"
	}
	var ustrd []string
	for _, el := range ntry.FindElements(".//RmtInf/Ustrd") {
		ustrd = append(ustrd, el.Text())
	}

	return StatementLine{
		IBAN:         iban,
		Bank:         "CAMT",
		Date:         date,
		Amount:       amount,
		Counterparty: first(ntry, ".//RltdPties/"+party+"/Nm", ".//RltdPties/"+party+"/Pty/Nm"),
		CounterIBAN:  first(ntry, ".//RltdPties/"+party+"Acct/Id/IBAN"),
		Description:  joinNonEmpty(ustrd...),
		BankRef:      ref,
	}, nil
}

func text(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return strings.TrimSpace(found.Text())
	}
	return ""
}

func first(el *etree.Element, paths ...string) string {
	for _, p := range paths {
		if v := text(el, p); v != "" {
			return v
		}
	}
	return ""
}
