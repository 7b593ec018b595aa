package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
	"github.com/ledgerline/ledgerline/internal/testutil"
)

func TestSaveTransactionsDeduplicatesByHash(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	txn := testutil.Txn("org-1", "Corner Deli", -1200)
	testutil.SaveTxns(t, store, txn)

	// Re-importing the same transaction under a new ID is a silent no-op.
	dup := txn
	dup.ID = uuid.NewString()
	testutil.SaveTxns(t, store, dup)

	txns, err := store.GetTransactions(ctx, "org-1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.ID, txns[0].ID)
}

func TestGetTransactionByIDNotFound(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	_, err := store.GetTransactionByID(ctx, uuid.NewString())
	assert.True(t, common.IsNotFound(err))
}

func TestUpdateTransactionCategory(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	txn := testutil.Txn("org-1", "Corner Deli", -1200)
	testutil.SaveTxns(t, store, txn)

	err := store.UpdateTransactionCategory(ctx, txn.ID, "meals", 0.92, false, model.DecisionRule)
	require.NoError(t, err)

	updated, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "meals", updated.Category)
	assert.InDelta(t, 0.92, updated.Confidence, 1e-9)
	assert.Equal(t, model.DecisionRule, updated.DecidedBy)

	err = store.UpdateTransactionCategory(ctx, uuid.NewString(), "meals", 0.92, false, model.DecisionRule)
	assert.True(t, common.IsNotFound(err))
}

func TestGetTransactionsToCategorize(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	pending := testutil.Txn("org-1", "Corner Deli", -1200)
	done := testutil.CategorizedTxn("org-1", "Starbucks", "meals", -575, 0.96, model.DecisionRule)
	testutil.SaveTxns(t, store, pending, done)

	txns, err := store.GetTransactionsToCategorize(ctx, "org-1", 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, pending.ID, txns[0].ID)
}

func TestTransactionsAreOrgScoped(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	testutil.SaveTxns(t, store,
		testutil.Txn("org-1", "Corner Deli", -1200),
		testutil.Txn("org-2", "Corner Deli", -1200))

	ours, err := store.GetTransactions(ctx, "org-1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, ours, 1)
	assert.Equal(t, "org-1", ours[0].OrgID)
}

func TestCategoriesSeededByMigration(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	meals, err := store.GetCategoryBySlug(ctx, "meals")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTypeExpense, meals.Type)

	_, err = store.GetCategoryBySlug(ctx, "no_such_slug")
	assert.True(t, common.IsNotFound(err))
}

func TestRuleVersionLineageQueries(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	v1 := &model.RuleVersion{
		ID: uuid.NewString(), OrgID: "org-1", Type: model.RuleTypeVendor,
		Pattern: "corner deli", Category: "meals", Source: model.RuleSourceManual,
		Version: 1, Confidence: 0.9, Active: true, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRuleVersion(ctx, v1))

	v2 := &model.RuleVersion{
		ID: uuid.NewString(), OrgID: "org-1", Type: model.RuleTypeVendor,
		Pattern: "corner deli", Category: "groceries", Source: model.RuleSourceLearned,
		Version: 2, ParentID: v1.ID, Confidence: 0.85, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRuleVersion(ctx, v2))

	latest, err := store.GetLatestRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, v2.ID, latest.ID)

	active, err := store.GetActiveRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v1.ID, active.ID)

	// The lineage is invisible to other orgs.
	other, err := store.GetLatestRuleVersion(ctx, "org-2", model.RuleTypeVendor, "corner deli")
	require.NoError(t, err)
	assert.Nil(t, other)

	missing, err := store.GetActiveRuleVersion(ctx, "org-1", model.RuleTypeVendor, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetRuleVersionActive(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	rule := &model.RuleVersion{
		ID: uuid.NewString(), OrgID: "org-1", Type: model.RuleTypeMCC,
		Pattern: "5814", Category: "meals", Source: model.RuleSourceManual,
		Version: 1, Confidence: 0.9, Active: true, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRuleVersion(ctx, rule))

	require.NoError(t, store.SetRuleVersionActive(ctx, rule.ID, false))
	got, err := store.GetRuleVersion(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotNil(t, got.DeactivatedAt)

	require.NoError(t, store.SetRuleVersionActive(ctx, rule.ID, true))
	got, err = store.GetRuleVersion(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Nil(t, got.DeactivatedAt)

	err = store.SetRuleVersionActive(ctx, uuid.NewString(), true)
	assert.True(t, common.IsNotFound(err))
}

func TestCanaryResultLatestWins(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	rule := &model.RuleVersion{
		ID: uuid.NewString(), OrgID: "org-1", Type: model.RuleTypeVendor,
		Pattern: "corner deli", Category: "meals", Source: model.RuleSourceLearned,
		Version: 1, Confidence: 0.85, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRuleVersion(ctx, rule))

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	first := &model.CanaryTestResult{
		ID: uuid.NewString(), RuleVersionID: rule.ID, OrgID: "org-1",
		SampleSize: 5, Correct: 2, Accuracy: 0.4, Threshold: 0.8,
		TestedAt: base,
	}
	second := &model.CanaryTestResult{
		ID: uuid.NewString(), RuleVersionID: rule.ID, OrgID: "org-1",
		SampleSize: 8, Correct: 7, Accuracy: 0.875, Threshold: 0.8, Passed: true,
		TestedAt: base.Add(time.Hour),
	}
	require.NoError(t, store.SaveCanaryResult(ctx, first))
	require.NoError(t, store.SaveCanaryResult(ctx, second))

	got, err := store.GetCanaryResult(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.True(t, got.Passed)

	_, err = store.GetCanaryResult(ctx, uuid.NewString())
	assert.True(t, common.IsNotFound(err))
}

func TestBeginTxCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	txn := testutil.Txn("org-1", "Corner Deli", -1200)
	require.NoError(t, tx.SaveTransactions(ctx, []model.Transaction{txn}))
	require.NoError(t, tx.Rollback())

	_, err = store.GetTransactionByID(ctx, txn.ID)
	assert.True(t, common.IsNotFound(err), "rolled-back writes must not persist")

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveTransactions(ctx, []model.Transaction{txn}))
	require.NoError(t, tx.Commit())

	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
}

func TestOscillationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	txn := testutil.CategorizedTxn("org-1", "Ridgewood Hardware", "meals", -4500, 0.9, model.DecisionRule)
	testutil.SaveTxns(t, store, txn)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	osc := &model.Oscillation{
		ID: uuid.NewString(), OrgID: "org-1", TransactionID: txn.ID,
		Entries: []model.OscillationEntry{
			{Category: "meals", At: now},
			{Category: "groceries", At: now.Add(time.Minute), ActorID: "reviewer-1"},
			{Category: "meals", At: now.Add(2 * time.Minute), ActorID: "reviewer-1"},
		},
		Count: 2, FirstSeen: now, LastSeen: now.Add(2 * time.Minute),
	}
	require.NoError(t, store.UpsertOscillation(ctx, osc))

	got, err := store.GetOscillation(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Entries, 3)
	assert.Equal(t, "groceries", got.Entries[1].Category)

	unresolved, err := store.ListUnresolvedOscillations(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, unresolved, 1)

	osc.Resolved = true
	osc.FinalCategory = "meals"
	require.NoError(t, store.UpsertOscillation(ctx, osc))

	unresolved, err = store.ListUnresolvedOscillations(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestDriftAlertUpsertPreservesAcknowledgement(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	alert := &model.DriftAlert{
		ID: uuid.NewString(), OrgID: "org-1", Metric: "category_share:meals",
		Current: 0.8, Previous: 0.5, PctChange: 60, Severity: model.SeverityCritical,
		DetectedOn: date,
	}
	require.NoError(t, store.UpsertDriftAlert(ctx, alert))
	require.NoError(t, store.AcknowledgeDriftAlert(ctx, alert.ID))

	// A re-run of the same day produces a new candidate row; the stored
	// alert keeps its identity and acknowledged state.
	rerun := &model.DriftAlert{
		ID: uuid.NewString(), OrgID: "org-1", Metric: "category_share:meals",
		Current: 0.81, Previous: 0.5, PctChange: 62, Severity: model.SeverityCritical,
		DetectedOn: date,
	}
	require.NoError(t, store.UpsertDriftAlert(ctx, rerun))

	alerts, err := store.ListDriftAlerts(ctx, "org-1", false)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)
	assert.True(t, alerts[0].Acknowledged)
	assert.InDelta(t, 0.81, alerts[0].Current, 1e-9)
	assert.True(t, date.Equal(alerts[0].DetectedOn), "detection date must round-trip")

	pending, err := store.ListDriftAlerts(ctx, "org-1", true)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = store.AcknowledgeDriftAlert(ctx, uuid.NewString())
	assert.True(t, common.IsNotFound(err))
}
