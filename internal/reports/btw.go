package reports

import (
	"context"
	"fmt"
	"slices"

	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const btwReference = "BTW"

type BTWLine struct {
	Account     string          `json:"account"`
	AccountName string          `json:"account_name"`
	Movement    decimal.Decimal `json:"movement"`
	Balance     decimal.Decimal `json:"balance"`
}

type BTWReport struct {
	Year         int                 `json:"year"`
	Quarter      int                 `json:"quarter"`
	From         models.Date         `json:"from"`
	To           models.Date         `json:"to"`
	VAT          []BTWLine           `json:"vat"`
	Revenue      []BTWLine           `json:"revenue"`
	VATMovement  decimal.Decimal     `json:"vat_movement"`
	VATBalance   decimal.Decimal     `json:"vat_balance"`
	RevenueTotal decimal.Decimal     `json:"revenue_total"`
	Payable      decimal.Decimal     `json:"payable"`
	Proposal     *models.Transaction `json:"proposal,omitempty"`
}

func validQuarter(year, quarter int) bool {
	return year >= 1900 && year <= 9999 && quarter >= 1 && quarter <= 4
}

// BTW reports the VAT position of a quarter and proposes the booking that
// clears it.
func (s *Service) BTW(ctx context.Context, administration string, year, quarter int) (BTWReport, error) {
	if !validQuarter(year, quarter) {
		return BTWReport{}, ErrInvalidPeriod
	}
	key := fmt.Sprintf("btw:%d:%d", year, quarter)
	return cached(ctx, s, administration, key, func() (BTWReport, error) {
		return s.buildBTW(ctx, administration, year, quarter)
	})
}

func (s *Service) buildBTW(ctx context.Context, administration string, year, quarter int) (BTWReport, error) {
	from, to := models.QuarterBounds(year, quarter)
	accounts := s.rates.BTW

	movements, err := s.ledger.Entries(ctx, administration, cache.LedgerQuery{From: from, To: to, Accounts: slices.Concat(accounts.VAT, accounts.Revenue)})
	if err != nil {
		return BTWReport{}, err
	}
	balances, err := s.ledger.Entries(ctx, administration, cache.LedgerQuery{To: to, Accounts: accounts.VAT})
	if err != nil {
		return BTWReport{}, err
	}
	moved := totalsByAccount(movements)
	held := totalsByAccount(balances)

	r := BTWReport{Year: year, Quarter: quarter, From: from, To: to, VAT: []BTWLine{}, Revenue: []BTWLine{}}
	for _, code := range accounts.VAT {
		line := BTWLine{Account: code, AccountName: nameOf(code, moved, held), Movement: moved[code].Amount, Balance: held[code].Amount}
		r.VAT = append(r.VAT, line)
		r.VATMovement = r.VATMovement.Add(line.Movement)
		r.VATBalance = r.VATBalance.Add(line.Balance)
	}
	for _, code := range accounts.Revenue {
		line := BTWLine{Account: code, AccountName: nameOf(code, moved), Movement: moved[code].Amount}
		r.Revenue = append(r.Revenue, line)
		r.RevenueTotal = r.RevenueTotal.Add(line.Movement)
	}
	r.Payable = r.VATBalance.Neg()

	if !r.Payable.IsZero() {
		period := fmt.Sprintf("Q%d %d", quarter, year)
		tx := models.Transaction{
			TransactionNumber:      "BTW " + period,
			TransactionDate:        to,
			TransactionDescription: "BTW " + period,
			TransactionAmount:      r.Payable.Abs(),
			Debet:                  accounts.Payable,
			Credit:                 accounts.Settlement,
			ReferenceNumber:        btwReference,
			Ref1:                   period,
			Administration:         administration,
		}
		if r.Payable.IsNegative() {
			tx.Debet, tx.Credit = tx.Credit, tx.Debet
		}
		r.Proposal = &tx
	}
	return r, nil
}

// BookBTW stores the proposed BTW booking of a quarter. A quarter is booked
// at most once.
func (s *Service) BookBTW(ctx context.Context, administration string, year, quarter int) (models.Transaction, error) {
	if !validQuarter(year, quarter) {
		return models.Transaction{}, ErrInvalidPeriod
	}
	r, err := s.buildBTW(ctx, administration, year, quarter)
	if err != nil {
		return models.Transaction{}, err
	}
	if r.Proposal == nil {
		return models.Transaction{}, ErrNothingToBook
	}
	exists, err := s.txs.ExistsByReference(ctx, administration, btwReference, r.Proposal.Ref1)
	if err != nil {
		return models.Transaction{}, err
	}
	if exists {
		return models.Transaction{}, ErrAlreadyBooked
	}

	tx, err := s.txs.Create(ctx, *r.Proposal)
	if err != nil {
		return models.Transaction{}, err
	}
	s.ledger.Invalidate()
	s.Invalidate(ctx, administration)
	s.log.WithFields(logrus.Fields{
		"administration": administration,
		"period":         tx.Ref1,
		"amount":         tx.TransactionAmount.String(),
	}).Info("btw booked")
	return tx, nil
}

func totalsByAccount(entries []models.LedgerEntry) map[string]cache.AccountTotal {
	out := map[string]cache.AccountTotal{}
	for _, t := range cache.SumByAccount(entries) {
		out[t.Account] = t
	}
	return out
}

func nameOf(code string, sets ...map[string]cache.AccountTotal) string {
	for _, set := range sets {
		if t, ok := set[code]; ok {
			return t.AccountName
		}
	}
	return ""
}
