package reports

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/PeterGeers/myadmin/internal/cache"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/shopspring/decimal"
)

const (
	GroupYear    = "year"
	GroupQuarter = "quarter"
	GroupMonth   = "month"
)

type ActualsRow struct {
	Account     string                     `json:"account"`
	AccountName string                     `json:"account_name"`
	Parent      string                     `json:"parent"`
	VW          string                     `json:"vw"`
	Periods     map[string]decimal.Decimal `json:"periods"`
}

type ActualsReport struct {
	Years   []int                      `json:"years"`
	Group   string                     `json:"group"`
	VW      string                     `json:"vw,omitempty"`
	Periods []string                   `json:"periods"`
	Rows    []ActualsRow               `json:"rows"`
	Totals  map[string]decimal.Decimal `json:"totals"`
}

func periodKey(e models.LedgerEntry, group string) string {
	switch group {
	case GroupQuarter:
		return fmt.Sprintf("%d-Q%d", e.Year(), e.Quarter())
	case GroupMonth:
		return fmt.Sprintf("%d-%02d", e.Year(), e.Month())
	default:
		return fmt.Sprintf("%d", e.Year())
	}
}

// Actuals sums account movements per period over the given years. vw
// restricts the accounts to profit and loss (Y) or balance sheet (N).
func (s *Service) Actuals(ctx context.Context, administration string, years []int, group, vw string) (ActualsReport, error) {
	if len(years) == 0 {
		return ActualsReport{}, ErrInvalidPeriod
	}
	switch group {
	case "":
		group = GroupYear
	case GroupYear, GroupQuarter, GroupMonth:
	default:
		return ActualsReport{}, ErrInvalidPeriod
	}
	switch vw {
	case "", models.VWProfitLoss, models.VWBalance:
	default:
		return ActualsReport{}, ErrInvalidPeriod
	}
	years = slices.Clone(years)
	slices.Sort(years)
	years = slices.Compact(years)

	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprint(y)
	}
	key := fmt.Sprintf("actuals:%s:%s:%s", strings.Join(parts, ","), group, vw)

	return cached(ctx, s, administration, key, func() (ActualsReport, error) {
		entries, err := s.ledger.Entries(ctx, administration, cache.LedgerQuery{VW: vw})
		if err != nil {
			return ActualsReport{}, err
		}

		r := ActualsReport{Years: years, Group: group, VW: vw, Periods: []string{}, Rows: []ActualsRow{}, Totals: map[string]decimal.Decimal{}}
		index := map[string]int{}
		for _, e := range entries {
			if !slices.Contains(years, e.Year()) {
				continue
			}
			p := periodKey(e, group)
			i, ok := index[e.Reknum]
			if !ok {
				i = len(r.Rows)
				index[e.Reknum] = i
				r.Rows = append(r.Rows, ActualsRow{
					Account:     e.Reknum,
					AccountName: e.AccountName,
					Parent:      e.Parent,
					VW:          e.VW,
					Periods:     map[string]decimal.Decimal{},
				})
			}
			r.Rows[i].Periods[p] = r.Rows[i].Periods[p].Add(e.Amount)
			if _, seen := r.Totals[p]; !seen {
				r.Periods = append(r.Periods, p)
			}
			r.Totals[p] = r.Totals[p].Add(e.Amount)
		}
		slices.Sort(r.Periods)
		slices.SortFunc(r.Rows, func(a, b ActualsRow) int { return cmp.Compare(a.Account, b.Account) })
		return r, nil
	})
}

type BalanceReport struct {
	Date     models.Date          `json:"date"`
	Accounts []cache.AccountTotal `json:"accounts"`
	Total    decimal.Decimal      `json:"total"`
}

// Balance lists the balance sheet accounts at date.
func (s *Service) Balance(ctx context.Context, administration string, date models.Date) (BalanceReport, error) {
	if date.IsZero() {
		return BalanceReport{}, ErrInvalidPeriod
	}
	return cached(ctx, s, administration, "balance:"+date.String(), func() (BalanceReport, error) {
		totals, err := s.ledger.Balances(ctx, administration, date, models.VWBalance)
		if err != nil {
			return BalanceReport{}, err
		}
		r := BalanceReport{Date: date, Accounts: totals, Total: decimal.Zero}
		for _, t := range totals {
			r.Total = r.Total.Add(t.Amount)
		}
		return r, nil
	})
}

type STRSummaryRow struct {
	Quarter  int             `json:"quarter"`
	Channel  string          `json:"channel"`
	Listing  string          `json:"listing"`
	Bookings int             `json:"bookings"`
	Nights   int             `json:"nights"`
	Gross    decimal.Decimal `json:"gross"`
	Nett     decimal.Decimal `json:"nett"`
}

type STRSummary struct {
	Year   int             `json:"year"`
	Rows   []STRSummaryRow `json:"rows"`
	Totals StayTotals      `json:"totals"`
}

// STRSummaryReport summarises the year's non-cancelled bookings per
// quarter, channel and listing.
func (s *Service) STRSummaryReport(ctx context.Context, administration string, year int) (STRSummary, error) {
	if year < 1900 || year > 9999 {
		return STRSummary{}, ErrInvalidPeriod
	}
	return cached(ctx, s, administration, fmt.Sprintf("strsummary:%d", year), func() (STRSummary, error) {
		all, err := s.bookings.Bookings(ctx, administration, cache.BookingQuery{Year: year})
		if err != nil {
			return STRSummary{}, err
		}
		type rowKey struct {
			quarter          int
			channel, listing string
		}
		index := map[rowKey]int{}
		r := STRSummary{Year: year, Rows: []STRSummaryRow{}}
		for _, b := range all {
			if b.Status == models.BookingCancelled {
				continue
			}
			r.Totals.add(b)
			k := rowKey{b.Quarter, b.Channel, b.Listing}
			i, ok := index[k]
			if !ok {
				i = len(r.Rows)
				index[k] = i
				r.Rows = append(r.Rows, STRSummaryRow{Quarter: b.Quarter, Channel: b.Channel, Listing: b.Listing})
			}
			r.Rows[i].Bookings++
			r.Rows[i].Nights += b.Nights
			r.Rows[i].Gross = r.Rows[i].Gross.Add(b.AmountGross)
			r.Rows[i].Nett = r.Rows[i].Nett.Add(b.AmountNett)
		}
		slices.SortFunc(r.Rows, func(a, b STRSummaryRow) int {
			return cmp.Or(cmp.Compare(a.Quarter, b.Quarter), cmp.Compare(a.Channel, b.Channel), cmp.Compare(a.Listing, b.Listing))
		})
		return r, nil
	})
}
