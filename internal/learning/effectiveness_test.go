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

func TestTrackEffectiveness(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	rule, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli", "meals", 0.9, model.RuleSourceManual)
	require.NoError(t, err)

	// Four applications of the rule's category; one was corrected away.
	for i := 0; i < 3; i++ {
		testutil.SaveTxns(t, store,
			testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1_200, 0.9, model.DecisionRule))
	}
	corrected := testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1_200, 0.9, model.DecisionRule)
	testutil.SaveTxns(t, store, corrected)
	c := correction(corrected.ID, "meals", "groceries", testNow().Add(-time.Hour))
	require.NoError(t, store.SaveCorrection(ctx, &c))

	results, err := svc.TrackEffectiveness(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, results, 1)

	eff := results[0]
	assert.Equal(t, rule.ID, eff.RuleVersionID)
	assert.Equal(t, 4, eff.Applications)
	assert.Equal(t, 1, eff.CorrectedAway)
	assert.InDelta(t, 0.75, eff.Precision, 1e-9)
}

func TestTrackEffectivenessNoActiveRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	results, err := svc.TrackEffectiveness(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTrackEffectivenessIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.CreateRuleVersion(ctx, "org-1", model.RuleTypeVendor, "corner deli", "meals", 0.9, model.RuleSourceManual)
	require.NoError(t, err)
	testutil.SaveTxns(t, store,
		testutil.CategorizedTxn("org-1", "Corner Deli", "meals", -1_200, 0.9, model.DecisionRule))

	first, err := svc.TrackEffectiveness(ctx, "org-1")
	require.NoError(t, err)
	second, err := svc.TrackEffectiveness(ctx, "org-1")
	require.NoError(t, err)

	// Re-running on the same day upserts in place rather than accumulating.
	assert.Equal(t, first, second)
}
