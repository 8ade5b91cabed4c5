package repo

import (
	"context"

	"github.com/PeterGeers/myadmin/internal/models"
)

type TransactionFilter struct {
	Administration string
	From           *models.Date
	To             *models.Date
	Account        string // matches either side
	Search         string // description substring, case-insensitive
	Reference      string
	Offset         *int
	Limit          *int
}

type TransactionRepository interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, administration string, id int) (models.Transaction, error)
	Update(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, administration string, id int) error
	Filter(ctx context.Context, f TransactionFilter) ([]models.Transaction, int, error)
	// History returns every transaction of administration dated in [from, to].
	History(ctx context.Context, administration string, from, to models.Date) ([]models.Transaction, error)
	ExistsByBankRef(ctx context.Context, administration, ref1, ref2 string) (bool, error)
	ExistsByReference(ctx context.Context, administration, reference, ref1 string) (bool, error)
	CountByAccount(ctx context.Context, administration, account string) (int, error)
}
