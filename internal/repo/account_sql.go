package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/jmoiron/sqlx"
)

type SQLAccountRepository struct {
	db *sqlx.DB
}

func NewSQLAccountRepository(db *sqlx.DB) *SQLAccountRepository {
	return &SQLAccountRepository{db: db}
}

const accountColumns = `Account, AccountName, Parent, VW, Belastingaangifte, Administration`

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	var parent, tax sql.NullString
	err := row.Scan(&a.Account, &a.AccountName, &parent, &a.VW, &tax, &a.Administration)
	a.Parent, a.TaxCategory = parent.String, tax.String
	return a, err
}

func (r *SQLAccountRepository) list(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLAccountRepository) List(ctx context.Context, administration string) ([]models.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM rekeningschema WHERE Administration = ? ORDER BY Account`, administration)
}

func (r *SQLAccountRepository) ListAll(ctx context.Context) ([]models.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM rekeningschema ORDER BY Administration, Account`)
}

func (r *SQLAccountRepository) Get(ctx context.Context, administration, code string) (models.Account, error) {
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM rekeningschema WHERE Administration = ? AND Account = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, administration, code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *SQLAccountRepository) Create(ctx context.Context, a models.Account) (models.Account, error) {
	query := r.db.Rebind(`INSERT INTO rekeningschema (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, query, a.Account, a.AccountName, a.Parent, a.VW, a.TaxCategory, a.Administration)
	if err != nil {
		if isDuplicate(err) {
			return models.Account{}, ErrDuplicatedValueUnique
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *SQLAccountRepository) Update(ctx context.Context, a models.Account) (models.Account, error) {
	query := r.db.Rebind(`UPDATE rekeningschema SET AccountName = ?, Parent = ?, VW = ?, Belastingaangifte = ?
		WHERE Administration = ? AND Account = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, a.AccountName, a.Parent, a.VW, a.TaxCategory, a.Administration, a.Account)
	if err != nil {
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, a.Administration, a.Account); err != nil {
			return models.Account{}, err
		}
	}
	return a, nil
}

func (r *SQLAccountRepository) Delete(ctx context.Context, administration, code string) error {
	query := r.db.Rebind(`DELETE FROM rekeningschema WHERE Administration = ? AND Account = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, administration, code)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

type SQLBankAccountRepository struct {
	db *sqlx.DB
}

func NewSQLBankAccountRepository(db *sqlx.DB) *SQLBankAccountRepository {
	return &SQLBankAccountRepository{db: db}
}

func (r *SQLBankAccountRepository) List(ctx context.Context, administration string) ([]models.BankAccount, error) {
	query := r.db.Rebind(`SELECT rekeningNummer, Account, Bank, Administration FROM lookupbankaccounts
		WHERE Administration = ? ORDER BY rekeningNummer`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, administration)
	if err != nil {
		return nil, fmt.Errorf("query bank accounts: %w", err)
	}
	defer rows.Close()

	banks := []models.BankAccount{}
	for rows.Next() {
		var b models.BankAccount
		if err := rows.Scan(&b.IBAN, &b.Account, &b.Bank, &b.Administration); err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

func (r *SQLBankAccountRepository) GetByIBAN(ctx context.Context, iban string) (models.BankAccount, error) {
	query := r.db.Rebind(`SELECT rekeningNummer, Account, Bank, Administration FROM lookupbankaccounts WHERE rekeningNummer = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var b models.BankAccount
	err := r.db.QueryRowContext(ctx, query, iban).Scan(&b.IBAN, &b.Account, &b.Bank, &b.Administration)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BankAccount{}, ErrBankAccountNotFound
	}
	return b, err
}

func (r *SQLBankAccountRepository) Create(ctx context.Context, b models.BankAccount) (models.BankAccount, error) {
	query := r.db.Rebind(`INSERT INTO lookupbankaccounts (rekeningNummer, Account, Bank, Administration) VALUES (?, ?, ?, ?)`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, query, b.IBAN, b.Account, b.Bank, b.Administration); err != nil {
		if isDuplicate(err) {
			return models.BankAccount{}, ErrDuplicatedValueUnique
		}
		return models.BankAccount{}, fmt.Errorf("insert bank account: %w", err)
	}
	return b, nil
}

func (r *SQLBankAccountRepository) Delete(ctx context.Context, administration, iban string) error {
	query := r.db.Rebind(`DELETE FROM lookupbankaccounts WHERE Administration = ? AND rekeningNummer = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, administration, iban)
	if err != nil {
		return fmt.Errorf("delete bank account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}
