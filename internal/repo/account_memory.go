package repo

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/PeterGeers/myadmin/internal/models"
)

type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts []models.Account
}

func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{accounts: []models.Account{}}
}

func sortAccounts(accounts []models.Account) {
	slices.SortFunc(accounts, func(a, b models.Account) int {
		return strings.Compare(a.Account, b.Account)
	})
}

func (r *InMemoryAccountRepository) List(_ context.Context, administration string) ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Account{}
	for _, a := range r.accounts {
		if a.Administration == administration {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (r *InMemoryAccountRepository) ListAll(_ context.Context) ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.accounts), nil
}

func (r *InMemoryAccountRepository) Get(_ context.Context, administration, code string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Administration == administration && a.Account == code {
			return a, nil
		}
	}
	return models.Account{}, ErrAccountNotFound
}

func (r *InMemoryAccountRepository) Create(_ context.Context, a models.Account) (models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Administration == a.Administration && existing.Account == a.Account {
			return models.Account{}, ErrDuplicatedValueUnique
		}
	}
	r.accounts = append(r.accounts, a)
	return a, nil
}

func (r *InMemoryAccountRepository) Update(_ context.Context, a models.Account) (models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.accounts {
		if existing.Administration == a.Administration && existing.Account == a.Account {
			r.accounts[i] = a
			return a, nil
		}
	}
	return models.Account{}, ErrAccountNotFound
}

func (r *InMemoryAccountRepository) Delete(_ context.Context, administration, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.accounts {
		if a.Administration == administration && a.Account == code {
			r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
			return nil
		}
	}
	return ErrAccountNotFound
}

type InMemoryBankAccountRepository struct {
	mu    sync.RWMutex
	banks []models.BankAccount
}

func NewInMemoryBankAccountRepository() *InMemoryBankAccountRepository {
	return &InMemoryBankAccountRepository{banks: []models.BankAccount{}}
}

func (r *InMemoryBankAccountRepository) List(_ context.Context, administration string) ([]models.BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.BankAccount{}
	for _, b := range r.banks {
		if b.Administration == administration {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *InMemoryBankAccountRepository) GetByIBAN(_ context.Context, iban string) (models.BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.banks {
		if b.IBAN == iban {
			return b, nil
		}
	}
	return models.BankAccount{}, ErrBankAccountNotFound
}

func (r *InMemoryBankAccountRepository) Create(_ context.Context, b models.BankAccount) (models.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.banks {
		if existing.IBAN == b.IBAN {
			return models.BankAccount{}, ErrDuplicatedValueUnique
		}
	}
	r.banks = append(r.banks, b)
	return b, nil
}

func (r *InMemoryBankAccountRepository) Delete(_ context.Context, administration, iban string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, b := range r.banks {
		if b.Administration == administration && b.IBAN == iban {
			r.banks = append(r.banks[:i], r.banks[i+1:]...)
			return nil
		}
	}
	return ErrBankAccountNotFound
}
