package models

const (
	VWProfitLoss = "Y"
	VWBalance    = "N"
)

// Account is an entry of the chart of accounts (rekeningschema).
type Account struct {
	Account        string `json:"account" db:"Account"`
	AccountName    string `json:"account_name" db:"AccountName"`
	Parent         string `json:"parent" db:"Parent"`
	VW             string `json:"vw" db:"VW"`
	TaxCategory    string `json:"tax_category" db:"Belastingaangifte"`
	Administration string `json:"administration" db:"Administration"`
}

// BankAccount maps an IBAN onto the ledger account that books it.
type BankAccount struct {
	IBAN           string `json:"iban" db:"IBAN"`
	Account        string `json:"account" db:"Account"`
	Bank           string `json:"bank" db:"Bank"`
	Administration string `json:"administration" db:"Administration"`
}
