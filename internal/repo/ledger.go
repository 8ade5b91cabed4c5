package repo

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/jmoiron/sqlx"
)

// LedgerRepository reads the full vw_mutaties view for every administration.
type LedgerRepository interface {
	LoadAll(ctx context.Context) ([]models.LedgerEntry, error)
}

// InMemoryLedgerRepository derives the view from in-memory transactions and accounts.
type InMemoryLedgerRepository struct {
	txs      *InMemoryTransactionRepository
	accounts *InMemoryAccountRepository
	loads    atomic.Int64
}

func NewInMemoryLedgerRepository(txs *InMemoryTransactionRepository, accounts *InMemoryAccountRepository) *InMemoryLedgerRepository {
	return &InMemoryLedgerRepository{txs: txs, accounts: accounts}
}

func (r *InMemoryLedgerRepository) LoadAll(ctx context.Context) ([]models.LedgerEntry, error) {
	accounts, err := r.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	r.loads.Add(1)
	return models.ExpandLedger(r.txs.All(), accounts), nil
}

// Loads returns how many times the view was read.
func (r *InMemoryLedgerRepository) Loads() int {
	return int(r.loads.Load())
}

type SQLLedgerRepository struct {
	db *sqlx.DB
}

func NewSQLLedgerRepository(db *sqlx.DB) *SQLLedgerRepository {
	return &SQLLedgerRepository{db: db}
}

func (r *SQLLedgerRepository) LoadAll(ctx context.Context) ([]models.LedgerEntry, error) {
	// a full view load is far slower than a single-row query
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT ID, TransactionNumber, TransactionDate, TransactionDescription,
		ReferenceNumber, Administration, Reknum, Amount, AccountName, Parent, VW, Belastingaangifte
		FROM vw_mutaties`)
	if err != nil {
		return nil, fmt.Errorf("query vw_mutaties: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		var reference, parent, tax sql.NullString
		if err := rows.Scan(&e.ID, &e.TransactionNumber, &e.TransactionDate, &e.TransactionDescription,
			&reference, &e.Administration, &e.Reknum, &e.Amount, &e.AccountName, &parent, &e.VW, &tax); err != nil {
			return nil, err
		}
		e.ReferenceNumber, e.Parent, e.TaxCategory = reference.String, parent.String, tax.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
