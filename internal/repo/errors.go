package repo

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrBankAccountNotFound   = errors.New("bank account not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrDuplicatedValueUnique = errors.New("duplicated value violates unique constraint")
	ErrAccountInUse          = errors.New("account is referenced by transactions")
)

const (
	queryTimeout = 3 * time.Second
	defaultLimit = 100
	maxLimit     = 1000
)

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// isDuplicate reports a unique-key violation for either supported dialect.
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func isPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "pgx" || db.DriverName() == "postgres"
}

// insertID runs an INSERT and returns the generated ID column.
func insertID(ctx context.Context, db *sqlx.DB, query string, args ...any) (int, error) {
	if isPostgres(db) {
		var id int
		err := db.QueryRowContext(ctx, db.Rebind(query+" RETURNING ID"), args...).Scan(&id)
		return id, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func pageBounds(limit, offset *int) (int, int) {
	l := defaultLimit
	if limit != nil && *limit > 0 {
		l = min(*limit, maxLimit)
	}
	o := 0
	if offset != nil && *offset > 0 {
		o = *offset
	}
	return l, o
}

func paginate[T any](items []T, limit, offset *int) []T {
	l, o := pageBounds(limit, offset)
	if o >= len(items) {
		return []T{}
	}
	end := min(o+l, len(items))
	return items[o:end]
}
