package reports

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
)

type AccountGroup struct {
	Parent   string               `json:"parent"`
	Accounts []cache.AccountTotal `json:"accounts"`
	Total    decimal.Decimal      `json:"total"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type IBReport struct {
	Year            int             `json:"year"`
	ProfitLoss      []AccountGroup  `json:"profit_loss"`
	ProfitLossTotal decimal.Decimal `json:"profit_loss_total"`
	Balance         []AccountGroup  `json:"balance"`
	BalanceTotal    decimal.Decimal `json:"balance_total"`
	TaxCategories   []CategoryTotal `json:"tax_categories"`
	Result          decimal.Decimal `json:"result"`
}

// AangifteIB collects the figures of the income tax return: the year's
// profit and loss movements and the balance sheet at year end.
func (s *Service) AangifteIB(ctx context.Context, administration string, year int) (IBReport, error) {
	if year < 1900 || year > 9999 {
		return IBReport{}, ErrInvalidPeriod
	}
	return cached(ctx, s, administration, fmt.Sprintf("ib:%d", year), func() (IBReport, error) {
		from, to := models.YearBounds(year)
		pl, err := s.ledger.Movements(ctx, administration, from, to, models.VWProfitLoss)
		if err != nil {
			return IBReport{}, err
		}
		bal, err := s.ledger.Balances(ctx, administration, to, models.VWBalance)
		if err != nil {
			return IBReport{}, err
		}

		r := IBReport{Year: year}
		r.ProfitLoss, r.ProfitLossTotal = groupByParent(pl)
		r.Balance, r.BalanceTotal = groupByParent(bal)
		r.TaxCategories = byCategory(slices.Concat(pl, bal))
		r.Result = r.ProfitLossTotal.Neg()
		return r, nil
	})
}

func groupByParent(totals []cache.AccountTotal) ([]AccountGroup, decimal.Decimal) {
	index := map[string]int{}
	groups := []AccountGroup{}
	sum := decimal.Zero
	for _, t := range totals {
		i, ok := index[t.Parent]
		if !ok {
			i = len(groups)
			index[t.Parent] = i
			groups = append(groups, AccountGroup{Parent: t.Parent, Total: decimal.Zero})
		}
		groups[i].Accounts = append(groups[i].Accounts, t)
		groups[i].Total = groups[i].Total.Add(t.Amount)
		sum = sum.Add(t.Amount)
	}
	slices.SortFunc(groups, func(a, b AccountGroup) int { return cmp.Compare(a.Parent, b.Parent) })
	return groups, sum
}

func byCategory(totals []cache.AccountTotal) []CategoryTotal {
	index := map[string]int{}
	out := []CategoryTotal{}
	for _, t := range totals {
		if t.TaxCategory == "" {
			continue
		}
		i, ok := index[t.TaxCategory]
		if !ok {
			i = len(out)
			index[t.TaxCategory] = i
			out = append(out, CategoryTotal{Category: t.TaxCategory, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int { return cmp.Compare(a.Category, b.Category) })
	return out
}
