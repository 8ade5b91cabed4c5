package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
)

const admin = "GoodwinSolutions"

func seededLedger(t *testing.T) (*repo.InMemoryLedgerRepository, *repo.InMemoryTransactionRepository) {
	t.Helper()
	ctx := context.Background()
	accounts := repo.NewInMemoryAccountRepository()
	for _, a := range []models.Account{
		{Account: "1002", AccountName: "Rabobank", Parent: "1000", VW: models.VWBalance, Administration: admin},
		{Account: "4010", AccountName: "Kantoorkosten", Parent: "4000", VW: models.VWProfitLoss, Administration: admin},
		{Account: "8001", AccountName: "Omzet", Parent: "8000", VW: models.VWProfitLoss, Administration: admin},
	} {
		accounts.Create(ctx, a)
	}

	txs := repo.NewInMemoryTransactionRepository()
	for _, tx := range []models.Transaction{
		{TransactionDate: models.NewDate(2024, 12, 20), TransactionAmount: decimal.NewFromInt(1000), Debet: "1002", Credit: "8001", Administration: admin},
		{TransactionDate: models.NewDate(2025, 1, 10), TransactionAmount: decimal.NewFromInt(25), Debet: "4010", Credit: "1002", Administration: admin},
		{TransactionDate: models.NewDate(2025, 4, 2), TransactionAmount: decimal.NewFromInt(500), Debet: "1002", Credit: "8001", Administration: admin},
		{TransactionDate: models.NewDate(2025, 1, 10), TransactionAmount: decimal.NewFromInt(7), Debet: "4010", Credit: "1002", Administration: "PeterPrive"},
	} {
		txs.Create(ctx, tx)
	}
	return repo.NewInMemoryLedgerRepository(txs, accounts), txs
}

func TestLedgerCache_TTL(t *testing.T) {
	ledger, txs := seededLedger(t)
	logger, _ := test.NewNullLogger()
	c := NewLedgerCache(ledger, 30*time.Minute, logger)

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })
	ctx := context.Background()

	entries, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}

	txs.Create(ctx, models.Transaction{TransactionDate: models.NewDate(2025, 5, 1), TransactionAmount: decimal.NewFromInt(1),
		Debet: "4010", Credit: "1002", Administration: admin})

	now = now.Add(29 * time.Minute)
	entries, _ = c.Get(ctx)
	if len(entries) != 6 || ledger.Loads() != 1 {
		t.Errorf("expected cached snapshot within ttl, got %d entries after %d loads", len(entries), ledger.Loads())
	}

	now = now.Add(2 * time.Minute)
	entries, _ = c.Get(ctx)
	if len(entries) != 8 || ledger.Loads() != 2 {
		t.Errorf("expected reload after ttl, got %d entries after %d loads", len(entries), ledger.Loads())
	}

	st := c.Status()
	if st.Hits != 1 || st.Misses != 2 || st.Rows != 8 || st.LoadedAt == nil {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestLedgerCache_Invalidate(t *testing.T) {
	ledger, _ := seededLedger(t)
	logger, _ := test.NewNullLogger()
	c := NewLedgerCache(ledger, time.Hour, logger)
	ctx := context.Background()

	c.Get(ctx)
	c.Invalidate()
	if !c.Status().Stale {
		t.Error("expected stale status after invalidate")
	}
	c.Get(ctx)
	if ledger.Loads() != 2 {
		t.Errorf("expected reload after invalidate, got %d loads", ledger.Loads())
	}

	if err := c.Refresh(ctx); err != nil || ledger.Loads() != 3 {
		t.Errorf("expected forced refresh, got %d loads (%v)", ledger.Loads(), err)
	}
}

func TestLedgerCache_ConcurrentGetLoadsOnce(t *testing.T) {
	ledger, _ := seededLedger(t)
	logger, _ := test.NewNullLogger()
	c := NewLedgerCache(ledger, time.Hour, logger)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if ledger.Loads() != 1 {
		t.Errorf("expected exactly one load, got %d", ledger.Loads())
	}
}

type failingLedger struct{}

func (failingLedger) LoadAll(context.Context) ([]models.LedgerEntry, error) {
	return nil, errors.New("connection refused")
}

func TestLedgerCache_LoadError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewLedgerCache(failingLedger{}, time.Hour, logger)

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Status().LoadedAt != nil {
		t.Error("expected no snapshot after failed load")
	}
}

func TestLedgerCache_BalancesAndMovements(t *testing.T) {
	ledger, _ := seededLedger(t)
	logger, _ := test.NewNullLogger()
	c := NewLedgerCache(ledger, time.Hour, logger)
	ctx := context.Background()

	balances, err := c.Balances(ctx, admin, models.NewDate(2025, 3, 31), models.VWBalance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 1 || balances[0].Account != "1002" || !balances[0].Amount.Equal(decimal.NewFromInt(975)) {
		t.Errorf("unexpected balances %+v", balances)
	}

	moves, _ := c.Movements(ctx, admin, models.NewDate(2025, 1, 1), models.NewDate(2025, 12, 31), models.VWProfitLoss)
	if len(moves) != 2 {
		t.Fatalf("expected 2 P&L accounts, got %+v", moves)
	}
	if moves[0].Account != "4010" || !moves[0].Amount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("unexpected cost movement %+v", moves[0])
	}
	if moves[1].Account != "8001" || !moves[1].Amount.Equal(decimal.NewFromInt(-500)) {
		t.Errorf("unexpected revenue movement %+v", moves[1])
	}
}

func TestBookingCache_Bookings(t *testing.T) {
	bookings := repo.NewInMemoryBookingRepository()
	ctx := context.Background()
	bookings.Create(ctx, models.Booking{Channel: "airbnb", ReservationCode: "A1", Year: 2025, Status: models.BookingRealised, Administration: admin})
	bookings.Create(ctx, models.Booking{Channel: "booking.com", ReservationCode: "B1", Year: 2025, Status: models.BookingPlanned, Administration: admin})
	bookings.Create(ctx, models.Booking{Channel: "airbnb", ReservationCode: "A2", Year: 2024, Status: models.BookingRealised, Administration: admin})

	logger, _ := test.NewNullLogger()
	c := NewBookingCache(bookings, time.Hour, logger)

	got, err := c.Bookings(ctx, admin, BookingQuery{Year: 2025, Status: models.BookingRealised})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ReservationCode != "A1" {
		t.Errorf("unexpected bookings %+v", got)
	}

	c.Bookings(ctx, admin, BookingQuery{})
	if bookings.Loads() != 1 {
		t.Errorf("expected one load, got %d", bookings.Loads())
	}
}
