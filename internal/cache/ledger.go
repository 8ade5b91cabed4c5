package cache

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LedgerCache keeps vw_mutaties in memory for report queries.
type LedgerCache struct {
	t *table[models.LedgerEntry]
}

func NewLedgerCache(r repo.LedgerRepository, ttl time.Duration, log logrus.FieldLogger) *LedgerCache {
	return &LedgerCache{t: newTable("vw_mutaties", ttl, r.LoadAll, log)}
}

// SetClock replaces the time source.
func (c *LedgerCache) SetClock(now func() time.Time) { c.t.now = now }

func (c *LedgerCache) Get(ctx context.Context) ([]models.LedgerEntry, error) { return c.t.get(ctx) }
func (c *LedgerCache) Refresh(ctx context.Context) error                   { return c.t.refresh(ctx) }
func (c *LedgerCache) Invalidate()                                          { c.t.invalidate() }
func (c *LedgerCache) Status() Status                                       { return c.t.status() }

// LedgerQuery narrows cached entries. Zero values do not filter.
type LedgerQuery struct {
	From     models.Date
	To       models.Date
	Accounts []string
	VW       string
}

func (q LedgerQuery) match(e models.LedgerEntry) bool {
	if !q.From.IsZero() && e.TransactionDate.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.TransactionDate.After(q.To) {
		return false
	}
	if q.VW != "" && e.VW != q.VW {
		return false
	}
	if len(q.Accounts) > 0 && !slices.Contains(q.Accounts, e.Reknum) {
		return false
	}
	return true
}

// Entries returns the administration's entries matching q.
func (c *LedgerCache) Entries(ctx context.Context, administration string, q LedgerQuery) ([]models.LedgerEntry, error) {
	all, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.LedgerEntry{}
	for _, e := range all {
		if e.Administration == administration && q.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AccountTotal is the summed amount of one account.
type AccountTotal struct {
	Account     string          `json:"account"`
	AccountName string          `json:"account_name"`
	Parent      string          `json:"parent"`
	VW          string          `json:"vw"`
	TaxCategory string          `json:"tax_category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// SumByAccount totals entries per account, sorted by account code.
func SumByAccount(entries []models.LedgerEntry) []AccountTotal {
	index := map[string]int{}
	totals := []AccountTotal{}
	for _, e := range entries {
		i, ok := index[e.Reknum]
		if !ok {
			i = len(totals)
			index[e.Reknum] = i
			totals = append(totals, AccountTotal{
				Account:     e.Reknum,
				AccountName: e.AccountName,
				Parent:      e.Parent,
				VW:          e.VW,
				TaxCategory: e.TaxCategory,
			})
		}
		totals[i].Amount = totals[i].Amount.Add(e.Amount)
	}
	slices.SortFunc(totals, func(a, b AccountTotal) int { return strings.Compare(a.Account, b.Account) })
	return totals
}

// Balances sums every entry dated on or before until. An empty vw includes
// all accounts.
func (c *LedgerCache) Balances(ctx context.Context, administration string, until models.Date, vw string) ([]AccountTotal, error) {
	entries, err := c.Entries(ctx, administration, LedgerQuery{To: until, VW: vw})
	if err != nil {
		return nil, err
	}
	return SumByAccount(entries), nil
}

// Movements sums entries dated within [from, to].
func (c *LedgerCache) Movements(ctx context.Context, administration string, from, to models.Date, vw string) ([]AccountTotal, error) {
	entries, err := c.Entries(ctx, administration, LedgerQuery{From: from, To: to, VW: vw})
	if err != nil {
		return nil, err
	}
	return SumByAccount(entries), nil
}
