package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/storage"
	"github.com/ledgerline/ledgerline/internal/testutil"
)

// testNow is safely past every date testutil.Txn can generate, so seeded
// transactions always clear the canary holdout window.
func testNow() time.Time {
	return time.Date(2027, 1, 15, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *storage.SQLiteStore) {
	t.Helper()
	store := testutil.SetupTestDB(t)
	return NewService(store, DefaultConfig(), WithClock(testNow)), store
}

func TestCreateRuleVersionManual(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	v1, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "Blue Bottle", "meals", 0.9, model.RuleSourceManual)
	require.NoError(t, err)

	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, "blue bottle", v1.Pattern, "patterns are normalized")
	assert.True(t, v1.Active, "manual rules activate on creation")
	assert.Empty(t, v1.ParentID)

	v2, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle", "groceries", 0.9, model.RuleSourceManual)
	require.NoError(t, err)

	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, v1.ID, v2.ParentID)
	assert.True(t, v2.Active)

	active, err := store.GetActiveRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v2.ID, active.ID, "only one version per lineage is active")

	prior, err := store.GetRuleVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, prior.Active)
	assert.NotNil(t, prior.DeactivatedAt)
}

func TestCreateRuleVersionLearnedStartsInactive(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "ramen house", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)
	assert.False(t, rule.Active)

	active, err := store.GetActiveRuleVersion(ctx, "org-1", model.RuleTypeVendor, "ramen house")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestCreateRuleVersionUnknownCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle", "crypto_holdings", 0.9, model.RuleSourceManual)
	require.ErrorIs(t, err, common.ErrUnknownCategory)
}

func TestPromoteRequiresPassingCanary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "ramen house", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	err = svc.PromoteRuleVersion(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrCanaryRequired)
}

func TestPromoteAfterPassingCanary(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	for i := 0; i < 5; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Ramen House", "meals", -1800, 0.9, model.DecisionRule))
	}

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "Ramen House", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	canary, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, canary.Passed)

	require.NoError(t, svc.PromoteRuleVersion(ctx, rule.ID))

	active, err := store.GetActiveRuleVersion(ctx, "org-1", model.RuleTypeVendor, "ramen house")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, rule.ID, active.ID)

	// Promoting an already-active version is a no-op.
	require.NoError(t, svc.PromoteRuleVersion(ctx, rule.ID))
}

func TestPromoteDeactivatesCurrentVersion(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	v1, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "ramen house", "groceries", 0.9, model.RuleSourceManual)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Ramen House", "meals", -1800, 0.9, model.DecisionRule))
	}

	v2, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "ramen house", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	_, err = svc.RunCanaryTest(ctx, v2.ID)
	require.NoError(t, err)
	require.NoError(t, svc.PromoteRuleVersion(ctx, v2.ID))

	prior, err := store.GetRuleVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, prior.Active)
}

func TestRollbackReactivatesParent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	v1, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle", "meals", 0.9, model.RuleSourceManual)
	require.NoError(t, err)
	v2, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle", "groceries", 0.9, model.RuleSourceManual)
	require.NoError(t, err)

	require.NoError(t, svc.RollbackRuleVersion(ctx, v2.ID, "merchant is a cafe after all"))

	active, err := store.GetActiveRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v1.ID, active.ID, "rollback steps to the immediate parent")

	rolled, err := store.GetRuleVersion(ctx, v2.ID)
	require.NoError(t, err)
	assert.False(t, rolled.Active)
}

func TestRollbackInactiveVersion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	err = svc.RollbackRuleVersion(ctx, rule.ID, "")
	assert.ErrorIs(t, err, common.ErrVersionNotActive)
}

func TestRollbackFirstVersion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "blue bottle", "meals", 0.9, model.RuleSourceManual)
	require.NoError(t, err)

	err = svc.RollbackRuleVersion(ctx, rule.ID, "")
	assert.ErrorIs(t, err, common.ErrNoParentVersion)
}
