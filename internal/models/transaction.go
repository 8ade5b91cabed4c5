package models

import (
	"github.com/shopspring/decimal"
)

// Transaction is one row of the mutaties table. Each row moves
// TransactionAmount from Credit to Debet.
type Transaction struct {
	ID                     int             `json:"id" db:"ID"`
	TransactionNumber      string          `json:"transaction_number" db:"TransactionNumber"`
	TransactionDate        Date            `json:"transaction_date" db:"TransactionDate"`
	TransactionDescription string          `json:"transaction_description" db:"TransactionDescription"`
	TransactionAmount      decimal.Decimal `json:"transaction_amount" db:"TransactionAmount"`
	Debet                  string          `json:"debet" db:"Debet"`
	Credit                 string          `json:"credit" db:"Credit"`
	ReferenceNumber        string          `json:"reference_number" db:"ReferenceNumber"`
	Ref1                   string          `json:"ref1" db:"Ref1"`
	Ref2                   string          `json:"ref2" db:"Ref2"`
	Ref3                   string          `json:"ref3" db:"Ref3"`
	Ref4                   string          `json:"ref4" db:"Ref4"`
	Administration         string          `json:"administration" db:"Administration"`
}

// LedgerEntry is one row of vw_mutaties: one side of a transaction joined
// with its account. Debet sides carry a positive amount, credit sides a
// negative one.
type LedgerEntry struct {
	ID                     int             `json:"id" db:"ID"`
	TransactionNumber      string          `json:"transaction_number" db:"TransactionNumber"`
	TransactionDate        Date            `json:"transaction_date" db:"TransactionDate"`
	TransactionDescription string          `json:"transaction_description" db:"TransactionDescription"`
	ReferenceNumber        string          `json:"reference_number" db:"ReferenceNumber"`
	Administration         string          `json:"administration" db:"Administration"`
	Reknum                 string          `json:"reknum" db:"Reknum"`
	Amount                 decimal.Decimal `json:"amount" db:"Amount"`
	AccountName            string          `json:"account_name" db:"AccountName"`
	Parent                 string          `json:"parent" db:"Parent"`
	VW                     string          `json:"vw" db:"VW"`
	TaxCategory            string          `json:"tax_category" db:"Belastingaangifte"`
}

func (e LedgerEntry) Year() int    { return e.TransactionDate.Year() }
func (e LedgerEntry) Quarter() int { return e.TransactionDate.Quarter() }
func (e LedgerEntry) Month() int   { return int(e.TransactionDate.Month()) }

// ExpandLedger builds the vw_mutaties rows for txs. Sides without an account
// code, or whose account is not in the chart of the same administration, are
// dropped, mirroring the inner join of the view.
func ExpandLedger(txs []Transaction, accounts []Account) []LedgerEntry {
	chart := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		chart[a.Administration+"|"+a.Account] = a
	}

	entries := make([]LedgerEntry, 0, len(txs)*2)
	for _, tx := range txs {
		sides := []struct {
			code   string
			amount decimal.Decimal
		}{
			{tx.Debet, tx.TransactionAmount},
			{tx.Credit, tx.TransactionAmount.Neg()},
		}
		for _, side := range sides {
			if side.code == "" {
				continue
			}
			acc, ok := chart[tx.Administration+"|"+side.code]
			if !ok {
				continue
			}
			entries = append(entries, LedgerEntry{
				ID:                     tx.ID,
				TransactionNumber:      tx.TransactionNumber,
				TransactionDate:        tx.TransactionDate,
				TransactionDescription: tx.TransactionDescription,
				ReferenceNumber:        tx.ReferenceNumber,
				Administration:         tx.Administration,
				Reknum:                 side.code,
				Amount:                 side.amount,
				AccountName:            acc.AccountName,
				Parent:                 acc.Parent,
				VW:                     acc.VW,
				TaxCategory:            acc.TaxCategory,
			})
		}
	}
	return entries
}
