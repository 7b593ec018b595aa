// Package testutil provides shared helpers for tests that need a real
// storage backend or canned domain objects.
package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store. Migration seeds the
// default category set, so tests can reference standard slugs immediately.
// Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

var txnSeq atomic.Int64

// Txn returns a plausible uncategorized transaction for the given org. Each
// call gets a distinct date so identical merchants and amounts still hash
// uniquely. The caller overrides fields as needed.
func Txn(orgID, merchant string, amountCents int64) model.Transaction {
	txn := model.Transaction{
		ID:           uuid.New().String(),
		OrgID:        orgID,
		Date:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(txnSeq.Add(1))),
		Description:  merchant,
		MerchantName: merchant,
		Currency:     "USD",
		AmountCents:  amountCents,
		Source:       model.SourceImport,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

// CategorizedTxn returns a transaction already carrying a category decision,
// for seeding historical state.
func CategorizedTxn(orgID, merchant, category string, amountCents int64, confidence float64, decidedBy model.DecisionSource) model.Transaction {
	txn := Txn(orgID, merchant, amountCents)
	txn.Category = category
	txn.Confidence = confidence
	txn.DecidedBy = decidedBy
	return txn
}

// SaveTxns persists transactions, failing the test on error.
func SaveTxns(t *testing.T, store *storage.SQLiteStore, txns ...model.Transaction) {
	t.Helper()
	if err := store.SaveTransactions(context.Background(), txns); err != nil {
		t.Fatalf("failed to save transactions: %v", err)
	}
}
