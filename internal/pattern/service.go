package pattern

import (
	"context"
	"fmt"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
)

// LookbackYears limits training history to recent bookings.
const LookbackYears = 2

// Build trains an analyzer on the administration's transactions dated in
// the LookbackYears before until.
func Build(ctx context.Context, txs repo.TransactionRepository, banks repo.BankAccountRepository, administration string, until models.Date) (*Analyzer, error) {
	accounts, err := banks.List(ctx, administration)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	codes := make([]string, 0, len(accounts))
	for _, b := range accounts {
		codes = append(codes, b.Account)
	}

	from := models.DateOf(until.AddDate(-LookbackYears, 0, 0))
	history, err := txs.History(ctx, administration, from, until)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	a := NewAnalyzer()
	a.Train(history, codes)
	return a, nil
}
