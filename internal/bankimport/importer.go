// Package bankimport reads bank statements into transactions of an
// administration, predicting missing counterparts from its history.
package bankimport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/pattern"
	"github.com/PeterGeers/myadmin/internal/repo"
	"github.com/PeterGeers/myadmin/internal/tabular"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownFormat = errors.New("unrecognised statement format")
	ErrUnreadable    = errors.New("unreadable statement")
)

type PreviewRow struct {
	Row         int                `json:"row"`
	Transaction models.Transaction `json:"transaction"`
	Prediction  pattern.Prediction `json:"prediction"`
	Duplicate   bool               `json:"duplicate"`
}

type Preview struct {
	BatchID  string       `json:"batch_id"`
	Filename string       `json:"filename"`
	Format   string       `json:"format"`
	Rows     []PreviewRow `json:"rows"`
	Errors   []RowError   `json:"errors"`
}

// CommitResult numbers its errors by position in the committed batch
// (1-based), not by line of the previewed file.
type CommitResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

type Importer struct {
	txs      repo.TransactionRepository
	banks    repo.BankAccountRepository
	accounts repo.AccountRepository
	log      logrus.FieldLogger
	onCommit []func(administration string)
}

func NewImporter(txs repo.TransactionRepository, banks repo.BankAccountRepository, accounts repo.AccountRepository, log logrus.FieldLogger) *Importer {
	return &Importer{txs: txs, banks: banks, accounts: accounts, log: log}
}

// OnCommit registers fn to run after a commit that stored transactions.
func (im *Importer) OnCommit(fn func(administration string)) {
	im.onCommit = append(im.onCommit, fn)
}

// Preview parses a statement file into transactions without storing them.
func (im *Importer) Preview(ctx context.Context, administration, filename string, data []byte, opts Options) (Preview, error) {
	p := Preview{
		BatchID:  uuid.NewString(),
		Filename: filepath.Base(filename),
		Rows:     []PreviewRow{},
		Errors:   []RowError{},
	}

	var (
		rows []PreviewRow
		errs []RowError
	)
	if strings.EqualFold(filepath.Ext(filename), ".xml") {
		lines, lineErrs, err := ParseCAMT(data)
		if err != nil {
			return p, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		p.Format = camtFormat
		errs = lineErrs
		rows, errs = im.mapLines(ctx, administration, p.Filename, lines, errs)
	} else {
		table, err := tabular.Read(filename, data)
		if err != nil {
			return p, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		if isGeneric(table[0]) {
			p.Format = "Generic"
			rows, errs = parseGeneric(table, administration, p.Filename)
		} else {
			parser := detect(table[0])
			if parser == nil {
				return p, ErrUnknownFormat
			}
			p.Format = parser.Name()
			lines, lineErrs := parser.Parse(table, opts)
			rows, errs = im.mapLines(ctx, administration, p.Filename, lines, lineErrs)
		}
	}

	if err := im.predict(ctx, administration, rows); err != nil {
		return p, err
	}
	if err := im.markDuplicates(ctx, administration, rows); err != nil {
		return p, err
	}

	if rows != nil {
		p.Rows = rows
	}
	if errs != nil {
		p.Errors = errs
	}
	im.log.WithFields(logrus.Fields{
		"administration": administration,
		"batch_id":       p.BatchID,
		"format":         p.Format,
		"rows":           len(p.Rows),
		"errors":         len(p.Errors),
	}).Info("statement previewed")
	return p, nil
}

func detect(header []string) Parser {
	for _, p := range parsers {
		if p.Detect(header) {
			return p
		}
	}
	return nil
}

// mapLines books each line against the ledger account of its IBAN.
func (im *Importer) mapLines(ctx context.Context, administration, filename string, lines []StatementLine, errs []RowError) ([]PreviewRow, []RowError) {
	known := map[string]*models.BankAccount{}
	var rows []PreviewRow
	for _, line := range lines {
		ba, ok := known[line.IBAN]
		if !ok {
			found, err := im.banks.GetByIBAN(ctx, line.IBAN)
			if err == nil && found.Administration == administration {
				ba = &found
			}
			known[line.IBAN] = ba
		}
		if ba == nil {
			errs = append(errs, RowError{line.Row, fmt.Sprintf("unknown bank account %q", line.IBAN)})
			continue
		}
		if line.Amount.IsZero() {
			errs = append(errs, RowError{line.Row, "amount is zero"})
			continue
		}
		rows = append(rows, PreviewRow{Row: line.Row, Transaction: toTransaction(line, *ba, filename)})
	}
	return rows, errs
}

func toTransaction(line StatementLine, ba models.BankAccount, filename string) models.Transaction {
	bank := ba.Bank
	if bank == "" {
		bank = line.Bank
	}
	tx := models.Transaction{
		TransactionNumber:      bank + " " + line.Date.String(),
		TransactionDate:        line.Date,
		TransactionDescription: joinNonEmpty(line.Counterparty, line.Description),
		TransactionAmount:      line.Amount.Abs(),
		Ref1:                   line.IBAN,
		Ref2:                   line.BankRef,
		Ref4:                   filename,
		Administration:         ba.Administration,
	}
	if line.Amount.IsPositive() {
		tx.Debet = ba.Account
	} else {
		tx.Credit = ba.Account
	}
	return tx
}

func (im *Importer) predict(ctx context.Context, administration string, rows []PreviewRow) error {
	if len(rows) == 0 {
		return nil
	}
	newest := rows[0].Transaction.TransactionDate
	for _, r := range rows[1:] {
		if r.Transaction.TransactionDate.After(newest) {
			newest = r.Transaction.TransactionDate
		}
	}
	analyzer, err := pattern.Build(ctx, im.txs, im.banks, administration, newest)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].Prediction = analyzer.Predict(rows[i].Transaction)
		fill(&rows[i].Transaction, rows[i].Prediction)
	}
	return nil
}

func fill(tx *models.Transaction, p pattern.Prediction) {
	if tx.ReferenceNumber == "" {
		tx.ReferenceNumber = p.Reference
	}
	if tx.Debet == "" {
		tx.Debet = p.Debet
	}
	if tx.Credit == "" {
		tx.Credit = p.Credit
	}
}

func (im *Importer) markDuplicates(ctx context.Context, administration string, rows []PreviewRow) error {
	seen := map[string]bool{}
	for i := range rows {
		dup, err := im.isDuplicate(ctx, administration, rows[i].Transaction, seen)
		if err != nil {
			return err
		}
		rows[i].Duplicate = dup
	}
	return nil
}

func (im *Importer) isDuplicate(ctx context.Context, administration string, tx models.Transaction, seen map[string]bool) (bool, error) {
	if tx.Ref2 == "" {
		return false, nil
	}
	key := tx.Ref1 + "\x00" + tx.Ref2
	if seen[key] {
		return true, nil
	}
	seen[key] = true
	exists, err := im.txs.ExistsByBankRef(ctx, administration, tx.Ref1, tx.Ref2)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}

// Commit stores previewed transactions. Invalid rows and duplicates are
// reported per row; the rest are created.
func (im *Importer) Commit(ctx context.Context, administration string, txs []models.Transaction) (CommitResult, error) {
	start := time.Now()
	res := CommitResult{Errors: []RowError{}}
	seen := map[string]bool{}

	for i, tx := range txs {
		row := i + 1
		tx.ID = 0
		tx.Administration = administration

		fieldErrs, err := repo.ValidateTransaction(ctx, im.accounts, tx)
		if err != nil {
			return res, err
		}
		if len(fieldErrs) > 0 {
			res.Errors = append(res.Errors, RowError{row, fieldErrs[0].Description})
			continue
		}
		dup, err := im.isDuplicate(ctx, administration, tx, seen)
		if err != nil {
			return res, err
		}
		if dup {
			res.Skipped++
			continue
		}
		if _, err := im.txs.Create(ctx, tx); err != nil {
			if errors.Is(err, repo.ErrDuplicatedValueUnique) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("create transaction: %w", err)
		}
		res.Imported++
	}

	if res.Imported > 0 {
		for _, fn := range im.onCommit {
			fn(administration)
		}
	}
	im.log.WithFields(logrus.Fields{
		"administration": administration,
		"imported":       res.Imported,
		"skipped":        res.Skipped,
		"errors":         len(res.Errors),
		"duration":       time.Since(start).String(),
	}).Info("statement committed")
	return res, nil
}
