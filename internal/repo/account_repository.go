package repo

import (
	"context"

	"github.com/PeterGeers/myadmin/internal/models"
)

// AccountRepository manages the chart of accounts of each administration.
type AccountRepository interface {
	List(ctx context.Context, administration string) ([]models.Account, error)
	ListAll(ctx context.Context) ([]models.Account, error)
	Get(ctx context.Context, administration, code string) (models.Account, error)
	Create(ctx context.Context, a models.Account) (models.Account, error)
	Update(ctx context.Context, a models.Account) (models.Account, error)
	Delete(ctx context.Context, administration, code string) error
}

type BankAccountRepository interface {
	List(ctx context.Context, administration string) ([]models.BankAccount, error)
	GetByIBAN(ctx context.Context, iban string) (models.BankAccount, error)
	Create(ctx context.Context, b models.BankAccount) (models.BankAccount, error)
	Delete(ctx context.Context, administration, iban string) error
}
