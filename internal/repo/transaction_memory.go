package repo

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/PeterGeers/myadmin/internal/models"
)

// InMemoryTransactionRepository is an in-memory implementation of TransactionRepository.
type InMemoryTransactionRepository struct {
	mu     sync.RWMutex
	txs    []models.Transaction
	nextID int
}

func NewInMemoryTransactionRepository() *InMemoryTransactionRepository {
	return &InMemoryTransactionRepository{
		txs:    []models.Transaction{},
		nextID: 1,
	}
}

func (r *InMemoryTransactionRepository) Create(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx.ID = r.nextID
	r.nextID++
	r.txs = append(r.txs, tx)
	return tx, nil
}

func (r *InMemoryTransactionRepository) GetByID(_ context.Context, administration string, id int) (models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.txs {
		if tx.ID == id && tx.Administration == administration {
			return tx, nil
		}
	}
	return models.Transaction{}, ErrTransactionNotFound
}

func (r *InMemoryTransactionRepository) Update(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.txs {
		if existing.ID == tx.ID && existing.Administration == tx.Administration {
			r.txs[i] = tx
			return tx, nil
		}
	}
	return models.Transaction{}, ErrTransactionNotFound
}

func (r *InMemoryTransactionRepository) Delete(_ context.Context, administration string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, tx := range r.txs {
		if tx.ID == id && tx.Administration == administration {
			r.txs = append(r.txs[:i], r.txs[i+1:]...)
			return nil
		}
	}
	return ErrTransactionNotFound
}

func matchesTransaction(tx models.Transaction, f TransactionFilter) bool {
	if tx.Administration != f.Administration {
		return false
	}
	if f.From != nil && tx.TransactionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.TransactionDate.After(*f.To) {
		return false
	}
	if f.Account != "" && tx.Debet != f.Account && tx.Credit != f.Account {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(tx.TransactionDescription), strings.ToLower(f.Search)) {
		return false
	}
	if f.Reference != "" && tx.ReferenceNumber != f.Reference {
		return false
	}
	return true
}

func sortTransactions(txs []models.Transaction) {
	slices.SortFunc(txs, func(a, b models.Transaction) int {
		if c := b.TransactionDate.Compare(a.TransactionDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func (r *InMemoryTransactionRepository) Filter(_ context.Context, f TransactionFilter) ([]models.Transaction, int, error) {
	r.mu.RLock()
	var filtered []models.Transaction
	for _, tx := range r.txs {
		if matchesTransaction(tx, f) {
			filtered = append(filtered, tx)
		}
	}
	r.mu.RUnlock()

	sortTransactions(filtered)
	return paginate(filtered, f.Limit, f.Offset), len(filtered), nil
}

func (r *InMemoryTransactionRepository) History(_ context.Context, administration string, from, to models.Date) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f := TransactionFilter{Administration: administration, From: &from, To: &to}
	var out []models.Transaction
	for _, tx := range r.txs {
		if matchesTransaction(tx, f) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *InMemoryTransactionRepository) ExistsByBankRef(_ context.Context, administration, ref1, ref2 string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.txs {
		if tx.Administration == administration && tx.Ref1 == ref1 && tx.Ref2 == ref2 {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryTransactionRepository) ExistsByReference(_ context.Context, administration, reference, ref1 string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.txs {
		if tx.Administration == administration && tx.ReferenceNumber == reference && tx.Ref1 == ref1 {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryTransactionRepository) CountByAccount(_ context.Context, administration, account string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, tx := range r.txs {
		if tx.Administration == administration && (tx.Debet == account || tx.Credit == account) {
			n++
		}
	}
	return n, nil
}

// All returns a copy of every stored transaction.
func (r *InMemoryTransactionRepository) All() []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.txs)
}

func (r *InMemoryTransactionRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = []models.Transaction{}
	r.nextID = 1
}
