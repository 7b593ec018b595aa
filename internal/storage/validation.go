package storage

import (
	"context"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateTransactions(transactions []model.Transaction) error {
	for i, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("transaction %d: id cannot be empty", i)
		}
		if txn.OrgID == "" {
			return fmt.Errorf("transaction %d: org id cannot be empty", i)
		}
		if txn.Date.IsZero() {
			return fmt.Errorf("transaction %d: date cannot be zero", i)
		}
	}
	return nil
}

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}
