package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/testutil"
)

func TestRunCanaryTestZeroSample(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "unseen merchant", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	result, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)

	assert.Zero(t, result.SampleSize)
	assert.True(t, result.Inconclusive)
	assert.False(t, result.Passed, "an untested rule must not be promotable")
}

func TestRunCanaryTestAccuracy(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	// Three of five historical decisions agree with the candidate rule.
	for i := 0; i < 3; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1200, 0.9, model.DecisionRule))
	}
	for i := 0; i < 2; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Corner Deli", "groceries", -1200, 0.9, model.DecisionHuman))
	}

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "Corner Deli", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	result, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, result.SampleSize)
	assert.Equal(t, 3, result.Correct)
	assert.InDelta(t, 0.6, result.Accuracy, 1e-9)
	assert.False(t, result.Passed)
	assert.False(t, result.Inconclusive)
}

func TestRunCanaryTestMinSampleSize(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	// Perfect accuracy on too thin a sample is not conclusive enough to pass.
	for i := 0; i < 3; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1200, 0.9, model.DecisionRule))
	}

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	result, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, result.SampleSize)
	assert.InDelta(t, 1.0, result.Accuracy, 1e-9)
	assert.False(t, result.Passed)
}

func TestRunCanaryTestExcludesRecentTransactions(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	for i := 0; i < 5; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1200, 0.9, model.DecisionRule))
	}

	// Transactions inside the holdout window must not count.
	recent := testutil.CategorizedTxn("org-1", "Corner Deli", "groceries", -1200, 0.9, model.DecisionHuman)
	recent.Date = testNow().Add(-24 * time.Hour)
	recent.Hash = recent.GenerateHash()
	testutil.SaveTxns(t, store, recent)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	result, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, result.SampleSize)
	assert.Equal(t, 5, result.Correct)
	assert.True(t, result.Passed)
}

func TestRunCanaryTestVendorMatchIsExact(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	// Substring relatives of the pattern must not inflate the sample: the
	// admitted rule will only ever fire on an exact merchant match.
	for i := 0; i < 5; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Corner Deli Market", "groceries", -1200, 0.9, model.DecisionRule))
	}
	testutil.SaveTxns(t, store,
		testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1200, 0.9, model.DecisionRule))

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	result, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SampleSize)
	assert.Equal(t, 1, result.Correct)
	assert.False(t, result.Passed, "one exact match is below the minimum sample")
}

func TestRunCanaryTestIgnoresUncategorized(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	testutil.SaveTxns(t, store, testutil.Txn("org-1", "Corner Deli", -1200))

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli", "meals", 0.85, model.RuleSourceLearned)
	require.NoError(t, err)

	result, err := svc.RunCanaryTest(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, result.Inconclusive)
}
