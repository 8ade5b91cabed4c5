package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/jmoiron/sqlx"
)

type SQLTransactionRepository struct {
	db *sqlx.DB
}

func NewSQLTransactionRepository(db *sqlx.DB) *SQLTransactionRepository {
	return &SQLTransactionRepository{db: db}
}

const transactionColumns = `ID, TransactionNumber, TransactionDate, TransactionDescription, TransactionAmount,
	Debet, Credit, ReferenceNumber, Ref1, Ref2, Ref3, Ref4, Administration`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var tx models.Transaction
	var ref1, ref2, ref3, ref4, reference sql.NullString
	err := row.Scan(&tx.ID, &tx.TransactionNumber, &tx.TransactionDate, &tx.TransactionDescription,
		&tx.TransactionAmount, &tx.Debet, &tx.Credit, &reference, &ref1, &ref2, &ref3, &ref4, &tx.Administration)
	tx.ReferenceNumber = reference.String
	tx.Ref1, tx.Ref2, tx.Ref3, tx.Ref4 = ref1.String, ref2.String, ref3.String, ref4.String
	return tx, err
}

func (r *SQLTransactionRepository) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	query := `INSERT INTO mutaties (TransactionNumber, TransactionDate, TransactionDescription, TransactionAmount,
		Debet, Credit, ReferenceNumber, Ref1, Ref2, Ref3, Ref4, Administration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	id, err := insertID(ctx, r.db, query, tx.TransactionNumber, tx.TransactionDate, tx.TransactionDescription,
		tx.TransactionAmount, tx.Debet, tx.Credit, tx.ReferenceNumber, tx.Ref1, tx.Ref2, tx.Ref3, tx.Ref4, tx.Administration)
	if err != nil {
		if isDuplicate(err) {
			return models.Transaction{}, ErrDuplicatedValueUnique
		}
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID = id
	return tx, nil
}

func (r *SQLTransactionRepository) GetByID(ctx context.Context, administration string, id int) (models.Transaction, error) {
	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM mutaties WHERE ID = ? AND Administration = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, administration))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrTransactionNotFound
	}
	return tx, err
}

func (r *SQLTransactionRepository) Update(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	query := r.db.Rebind(`UPDATE mutaties SET TransactionNumber = ?, TransactionDate = ?, TransactionDescription = ?,
		TransactionAmount = ?, Debet = ?, Credit = ?, ReferenceNumber = ?, Ref1 = ?, Ref2 = ?, Ref3 = ?, Ref4 = ?
		WHERE ID = ? AND Administration = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, tx.TransactionNumber, tx.TransactionDate, tx.TransactionDescription,
		tx.TransactionAmount, tx.Debet, tx.Credit, tx.ReferenceNumber, tx.Ref1, tx.Ref2, tx.Ref3, tx.Ref4,
		tx.ID, tx.Administration)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed.
		if _, err := r.GetByID(ctx, tx.Administration, tx.ID); err != nil {
			return models.Transaction{}, err
		}
	}
	return tx, nil
}

func (r *SQLTransactionRepository) Delete(ctx context.Context, administration string, id int) error {
	query := r.db.Rebind(`DELETE FROM mutaties WHERE ID = ? AND Administration = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, id, administration)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func transactionConditions(f TransactionFilter) (string, []any) {
	where := " WHERE Administration = ?"
	args := []any{f.Administration}

	if f.From != nil {
		where += " AND TransactionDate >= ?"
		args = append(args, *f.From)
	}
	if f.To != nil {
		where += " AND TransactionDate <= ?"
		args = append(args, *f.To)
	}
	if f.Account != "" {
		where += " AND (Debet = ? OR Credit = ?)"
		args = append(args, f.Account, f.Account)
	}
	if f.Search != "" {
		where += " AND LOWER(TransactionDescription) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}
	if f.Reference != "" {
		where += " AND ReferenceNumber = ?"
		args = append(args, f.Reference)
	}
	return where, args
}

func (r *SQLTransactionRepository) Filter(ctx context.Context, f TransactionFilter) ([]models.Transaction, int, error) {
	where, args := transactionConditions(f)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM mutaties"+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	if offset >= total {
		return []models.Transaction{}, total, nil
	}

	query := "SELECT " + transactionColumns + " FROM mutaties" + where +
		" ORDER BY TransactionDate DESC, ID DESC LIMIT ? OFFSET ?"
	txs, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *SQLTransactionRepository) History(ctx context.Context, administration string, from, to models.Date) ([]models.Transaction, error) {
	where, args := transactionConditions(TransactionFilter{Administration: administration, From: &from, To: &to})
	ctx, cancel := context.WithTimeout(ctx, 4*queryTimeout)
	defer cancel()

	return r.query(ctx, "SELECT "+transactionColumns+" FROM mutaties"+where+" ORDER BY TransactionDate", args...)
}

func (r *SQLTransactionRepository) query(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *SQLTransactionRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLTransactionRepository) ExistsByBankRef(ctx context.Context, administration, ref1, ref2 string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(*) FROM mutaties WHERE Administration = ? AND Ref1 = ? AND Ref2 = ?`,
		administration, ref1, ref2)
}

func (r *SQLTransactionRepository) ExistsByReference(ctx context.Context, administration, reference, ref1 string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(*) FROM mutaties WHERE Administration = ? AND ReferenceNumber = ? AND Ref1 = ?`,
		administration, reference, ref1)
}

func (r *SQLTransactionRepository) CountByAccount(ctx context.Context, administration, account string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM mutaties WHERE Administration = ? AND (Debet = ? OR Credit = ?)`),
		administration, account, account).Scan(&n)
	return n, err
}
