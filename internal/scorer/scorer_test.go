package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name      string
		raw       float64
		agreement Agreement
		want      float64
	}{
		{
			name:      "lone exact signal keeps its confidence",
			raw:       0.92,
			agreement: Agreement{SignalCount: 1, DistinctTypes: 1, HasExact: true},
			want:      0.92,
		},
		{
			name:      "lone weak signal is penalized",
			raw:       0.60,
			agreement: Agreement{SignalCount: 1, DistinctTypes: 1},
			want:      0.48,
		},
		{
			name:      "two distinct types earn one bonus",
			raw:       0.90,
			agreement: Agreement{SignalCount: 2, DistinctTypes: 2, HasExact: true},
			want:      0.95,
		},
		{
			name:      "three distinct types earn two bonuses",
			raw:       0.85,
			agreement: Agreement{SignalCount: 3, DistinctTypes: 3, HasExact: true},
			want:      0.95,
		},
		{
			name:      "calibrated confidence is capped",
			raw:       0.98,
			agreement: Agreement{SignalCount: 3, DistinctTypes: 3, HasExact: true},
			want:      0.99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Calibrate(tt.raw, tt.agreement), 1e-9)
		})
	}
}

func TestScoreGroupsByCategory(t *testing.T) {
	txn := model.Transaction{AmountCents: -575}
	signals := []model.CategorizationSignal{
		{Type: model.SignalMCC, Category: "meals", Strength: model.StrengthExact, Confidence: 0.92},
		{Type: model.SignalVendor, Category: "meals", Strength: model.StrengthMedium, Confidence: 0.90},
		{Type: model.SignalKeyword, Category: "groceries", Strength: model.StrengthWeak, Confidence: 0.60},
	}

	scores := Score(txn, signals)
	require.Len(t, scores, 2)

	top := scores[0]
	assert.Equal(t, "meals", top.Category)
	assert.InDelta(t, 1.55, top.TotalWeight, 1e-9)
	assert.Equal(t, model.SignalMCC, top.Dominant.Type)
	// weighted mean 1.415/1.55 plus one cross-type agreement bonus
	assert.InDelta(t, 0.9629, top.Confidence, 1e-3)
	assert.GreaterOrEqual(t, top.Confidence, 0.95)

	assert.Equal(t, "groceries", scores[1].Category)
}

func TestScoreExactMCCFloor(t *testing.T) {
	// An unambiguous MCC hit must stay at or above 0.85 on its own.
	signals := []model.CategorizationSignal{
		{Type: model.SignalMCC, Category: "personal_care", Strength: model.StrengthExact, Confidence: 0.85},
	}
	scores := Score(model.Transaction{AmountCents: -4200}, signals)
	require.Len(t, scores, 1)
	assert.GreaterOrEqual(t, scores[0].Confidence, 0.85)
}

func TestScoreImplausibleAmountHaircut(t *testing.T) {
	signals := []model.CategorizationSignal{
		{Type: model.SignalMCC, Category: "meals", Strength: model.StrengthExact, Confidence: 0.92},
	}

	small := Score(model.Transaction{AmountCents: -575}, signals)
	large := Score(model.Transaction{AmountCents: -75_000}, signals)
	require.Len(t, small, 1)
	require.Len(t, large, 1)
	assert.InDelta(t, small[0].Confidence*0.92, large[0].Confidence, 1e-9)
}

func TestScoreDeterministicOrder(t *testing.T) {
	// Equal weight and equal type priority fall back to category name.
	signals := []model.CategorizationSignal{
		{Type: model.SignalKeyword, Category: "utilities", Strength: model.StrengthWeak, Confidence: 0.6},
		{Type: model.SignalKeyword, Category: "insurance", Strength: model.StrengthWeak, Confidence: 0.6},
	}

	for range 10 {
		scores := Score(model.Transaction{}, signals)
		require.Len(t, scores, 2)
		assert.Equal(t, "insurance", scores[0].Category)
		assert.Equal(t, "utilities", scores[1].Category)
	}
}

func TestScoreNoSignals(t *testing.T) {
	assert.Nil(t, Score(model.Transaction{}, nil))
}
