package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/PeterGeers/myadmin/internal/models"
)

// ValidateTransaction runs the field checks of tx and verifies that both
// accounts exist in the chart of tx.Administration.
func ValidateTransaction(ctx context.Context, accounts AccountRepository, tx models.Transaction) ([]models.FieldError, error) {
	errs := tx.Validate()
	if len(errs) > 0 {
		return errs, nil
	}
	for _, side := range []struct{ field, code string }{{"Debet", tx.Debet}, {"Credit", tx.Credit}} {
		_, err := accounts.Get(ctx, tx.Administration, side.code)
		if errors.Is(err, ErrAccountNotFound) {
			errs = append(errs, models.FieldError{Field: side.field, Description: fmt.Sprintf("account %s does not exist", side.code)})
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return errs, nil
}
