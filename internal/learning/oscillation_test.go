package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/storage"
	"github.com/ledgerline/ledgerline/internal/testutil"
)

func seedCategorized(t *testing.T, store *storage.SQLiteStore, category string) model.Transaction {
	t.Helper()
	txn := testutil.CategorizedTxn("org-1", "Ridgewood Hardware", category, -4_500, 0.9, model.DecisionRule)
	testutil.SaveTxns(t, store, txn)
	return txn
}

func correction(txnID, from, to string, at time.Time) model.Correction {
	return model.Correction{
		ID:            uuid.NewString(),
		OrgID:         "org-1",
		TransactionID: txnID,
		OldCategory:   from,
		NewCategory:   to,
		ActorID:       "reviewer-1",
		CreatedAt:     at,
	}
}

func TestRecordCorrectionAppliesCategory(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	txn := seedCategorized(t, store, "meals")

	err := svc.RecordCorrection(ctx, correction(txn.ID, "meals", "office_supplies", testNow()))
	require.NoError(t, err)

	updated, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "office_supplies", updated.Category)
	assert.InDelta(t, 1.0, updated.Confidence, 1e-9, "human decisions carry full confidence")
	assert.Equal(t, model.DecisionHuman, updated.DecidedBy)
	assert.False(t, updated.NeedsReview)

	history, err := store.GetCorrectionsByTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOscillationDetectedOnRevisit(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	txn := seedCategorized(t, store, "meals")

	base := testNow().Add(-time.Hour)
	require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, "meals", "groceries", base)))
	require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, "groceries", "meals", base.Add(time.Minute))))

	osc, err := store.GetOscillation(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, osc.Count, "meals -> groceries -> meals is two flips")
	assert.False(t, osc.Resolved)
	require.Len(t, osc.Entries, 3)
	assert.Equal(t, "meals", osc.Entries[0].Category)
	assert.Equal(t, "groceries", osc.Entries[1].Category)
	assert.Equal(t, "meals", osc.Entries[2].Category)
}

func TestNoOscillationWithoutRevisit(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	txn := seedCategorized(t, store, "meals")

	base := testNow().Add(-time.Hour)
	require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, "meals", "groceries", base)))
	require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, "groceries", "office_supplies", base.Add(time.Minute))))

	_, err := store.GetOscillation(ctx, txn.ID)
	assert.True(t, common.IsNotFound(err), "monotonic refinement is not oscillation")
}

func TestOscillationWindowBoundsSequence(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	txn := seedCategorized(t, store, "meals")

	base := testNow().Add(-time.Hour)
	steps := []struct{ from, to string }{
		{"meals", "groceries"},
		{"groceries", "meals"},
		{"meals", "groceries"},
		{"groceries", "meals"},
	}
	for i, s := range steps {
		require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, s.from, s.to, base.Add(time.Duration(i)*time.Minute))))
	}

	osc, err := store.GetOscillation(ctx, txn.ID)
	require.NoError(t, err)
	// Only the trailing window counts, not the full history.
	assert.Len(t, osc.Entries, 4)
	assert.Equal(t, 3, osc.Count)
}

func TestResolveOscillation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	txn := seedCategorized(t, store, "meals")

	base := testNow().Add(-time.Hour)
	require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, "meals", "groceries", base)))
	require.NoError(t, svc.RecordCorrection(ctx, correction(txn.ID, "groceries", "meals", base.Add(time.Minute))))

	require.NoError(t, svc.ResolveOscillation(ctx, txn.ID, "meals", "reviewer-2"))

	osc, err := store.GetOscillation(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, osc.Resolved)
	assert.Equal(t, "meals", osc.FinalCategory)
	assert.Equal(t, "reviewer-2", osc.Entries[len(osc.Entries)-1].ActorID)

	pinned, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "meals", pinned.Category)
	assert.Equal(t, model.DecisionHuman, pinned.DecidedBy)

	// Resolving twice is a no-op.
	require.NoError(t, svc.ResolveOscillation(ctx, txn.ID, "groceries", "reviewer-3"))
	osc, err = store.GetOscillation(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "meals", osc.FinalCategory)
}

func TestResolveOscillationNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.ResolveOscillation(ctx, uuid.NewString(), "meals", "reviewer-1")
	assert.True(t, common.IsNotFound(err))
}
