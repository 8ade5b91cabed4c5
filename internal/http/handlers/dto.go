package handlers

import (
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/pattern"
	"github.com/shopspring/decimal"
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
	Tenants  []string `json:"tenants"`
}

type CreateUserResult struct {
	ID       int      `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Tenants  []string `json:"tenants"`
}

type Meta struct {
	TotalCount int `json:"total_count"`
}

// TransactionRequest is the writable part of a transaction. The
// administration always comes from the request tenant.
type TransactionRequest struct {
	TransactionNumber      string          `json:"transaction_number"`
	TransactionDate        models.Date     `json:"transaction_date"`
	TransactionDescription string          `json:"transaction_description"`
	TransactionAmount      decimal.Decimal `json:"transaction_amount"`
	Debet                  string          `json:"debet"`
	Credit                 string          `json:"credit"`
	ReferenceNumber        string          `json:"reference_number"`
	Ref1                   string          `json:"ref1"`
	Ref2                   string          `json:"ref2"`
	Ref3                   string          `json:"ref3"`
	Ref4                   string          `json:"ref4"`
}

func (req TransactionRequest) toModel(administration string) models.Transaction {
	return models.Transaction{
		TransactionNumber:      req.TransactionNumber,
		TransactionDate:        req.TransactionDate,
		TransactionDescription: req.TransactionDescription,
		TransactionAmount:      req.TransactionAmount,
		Debet:                  req.Debet,
		Credit:                 req.Credit,
		ReferenceNumber:        req.ReferenceNumber,
		Ref1:                   req.Ref1,
		Ref2:                   req.Ref2,
		Ref3:                   req.Ref3,
		Ref4:                   req.Ref4,
		Administration:         administration,
	}
}

type TransactionsSearchResult struct {
	Data []models.Transaction `json:"data"`
	Meta Meta                 `json:"meta"`
}

type BookingsSearchResult struct {
	Data []models.Booking `json:"data"`
	Meta Meta             `json:"meta"`
}

type DocumentResult struct {
	URL         string             `json:"url"`
	Transaction models.Transaction `json:"transaction"`
}

type CommitRequest struct {
	BatchID      string               `json:"batch_id"`
	Transactions []models.Transaction `json:"transactions"`
}

type AnalyzeRequest struct {
	Transactions []models.Transaction `json:"transactions"`
}

type AnalyzeResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Predictions  []pattern.Prediction `json:"predictions"`
}

type CacheStatusResult struct {
	Ledger   any `json:"ledger"`
	Bookings any `json:"bookings"`
}

type MessageResult struct {
	Message string `json:"message"`
}
