package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func newMock(t *testing.T, driver string) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, driver), mock
}

var transactionRowColumns = []string{"ID", "TransactionNumber", "TransactionDate", "TransactionDescription",
	"TransactionAmount", "Debet", "Credit", "ReferenceNumber", "Ref1", "Ref2", "Ref3", "Ref4", "Administration"}

func TestSQLTransactionRepository_Create(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLTransactionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mutaties")).
		WithArgs("Rabo 2025-01-10", sqlmock.AnyArg(), "Albert Heijn", sqlmock.AnyArg(), "4010", "1002",
			"", "", "", "", "", "GoodwinSolutions").
		WillReturnResult(sqlmock.NewResult(42, 1))

	tx, err := r.Create(context.Background(), models.Transaction{
		TransactionNumber: "Rabo 2025-01-10", TransactionDate: models.NewDate(2025, 1, 10),
		TransactionDescription: "Albert Heijn", TransactionAmount: decimal.NewFromInt(25),
		Debet: "4010", Credit: "1002", Administration: "GoodwinSolutions",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != 42 {
		t.Errorf("expected id 42, got %d", tx.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLTransactionRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLTransactionRepository(db)

	mock.ExpectExec("INSERT INTO mutaties").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := r.Create(context.Background(), models.Transaction{Administration: "GoodwinSolutions"})
	if !errors.Is(err, ErrDuplicatedValueUnique) {
		t.Errorf("expected ErrDuplicatedValueUnique, got %v", err)
	}
}

func TestSQLTransactionRepository_Filter(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLTransactionRepository(db)

	from := models.NewDate(2025, 1, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM mutaties WHERE Administration = ? AND TransactionDate >= ? AND LOWER(TransactionDescription) LIKE ?")).
		WithArgs("GoodwinSolutions", sqlmock.AnyArg(), "%huur%").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY TransactionDate DESC, ID DESC LIMIT ? OFFSET ?")).
		WithArgs("GoodwinSolutions", sqlmock.AnyArg(), "%huur%", 100, 0).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow(7, "Rabo", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "Huur februari", "900.00",
				"1002", "8001", "Huur", nil, nil, nil, nil, "GoodwinSolutions"))

	txs, total, err := r.Filter(context.Background(), TransactionFilter{Administration: "GoodwinSolutions", From: &from, Search: "Huur"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(txs) != 1 {
		t.Fatalf("expected one row, got %d/%d", len(txs), total)
	}
	if !txs[0].TransactionAmount.Equal(decimal.NewFromInt(900)) || txs[0].ReferenceNumber != "Huur" {
		t.Errorf("unexpected row %+v", txs[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLTransactionRepository_DeleteNotFound(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLTransactionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mutaties WHERE ID = ? AND Administration = ?")).
		WithArgs(9, "GoodwinSolutions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := r.Delete(context.Background(), "GoodwinSolutions", 9); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestSQLUserRepository_PostgresReturning(t *testing.T) {
	db, mock := newMock(t, "pgx")
	r := NewSQLUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username, password_hash, roles, tenants, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING ID")).
		WithArgs("peter", "hash", "Finance_CRUD,STR_Read", "GoodwinSolutions", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	u, err := r.CreateUser(context.Background(), models.User{
		Username: "peter", PasswordHash: "hash",
		Roles: []string{models.RoleFinanceCRUD, models.RoleSTRRead}, Tenants: []string{"GoodwinSolutions"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 3 {
		t.Errorf("expected id 3, got %d", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLUserRepository_GetByUsername(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLUserRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT id, username, password_hash, roles, tenants").
		WithArgs("peter").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "roles", "tenants", "created_at", "updated_at"}).
			AddRow(1, "peter", "hash", "Finance_Read, STR_CRUD", "GoodwinSolutions,PeterPrive", now, now))

	u, err := r.GetByUsername(context.Background(), "peter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Roles) != 2 || u.Roles[1] != models.RoleSTRCRUD {
		t.Errorf("unexpected roles %v", u.Roles)
	}
	if len(u.Tenants) != 2 || u.Tenants[1] != "PeterPrive" {
		t.Errorf("unexpected tenants %v", u.Tenants)
	}

	mock.ExpectQuery("SELECT id, username").WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := r.GetByUsername(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSQLLedgerRepository_LoadAll(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLLedgerRepository(db)

	mock.ExpectQuery("FROM vw_mutaties").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "TransactionNumber", "TransactionDate", "TransactionDescription",
			"ReferenceNumber", "Administration", "Reknum", "Amount", "AccountName", "Parent", "VW", "Belastingaangifte"}).
			AddRow(1, "Rabo", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "Albert Heijn", nil, "GoodwinSolutions",
				"4010", "25.00", "Kantoorkosten", "4000", "Y", nil).
			AddRow(1, "Rabo", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "Albert Heijn", nil, "GoodwinSolutions",
				"1002", "-25.00", "Rabobank", "1000", "N", nil))

	entries, err := r.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[1].Amount.Equal(decimal.NewFromInt(-25)) || entries[1].VW != models.VWBalance {
		t.Errorf("unexpected entry %+v", entries[1])
	}
}

func TestSQLBookingRepository_GetByReservationNotFound(t *testing.T) {
	db, mock := newMock(t, "mysql")
	r := NewSQLBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bnb WHERE administration = ? AND channel = ? AND reservationCode = ?")).
		WithArgs("GoodwinSolutions", "airbnb", "HM123").
		WillReturnRows(sqlmock.NewRows([]string{"ID"}))

	if _, err := r.GetByReservation(context.Background(), "GoodwinSolutions", "airbnb", "HM123"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}
