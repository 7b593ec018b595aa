package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestMCCExtractor(t *testing.T) {
	table := MCCTable{
		"5814": {Category: "meals", Strength: model.StrengthExact, Confidence: 0.92},
		"6012": {Category: "bank_fees", Strength: model.StrengthStrong, Confidence: 0.70},
		"9999": {Category: "miscellaneous", Strength: model.StrengthExact, Confidence: 0.50},
	}
	extractor := NewMCCExtractor(table)

	tests := []struct {
		name           string
		mcc            string
		wantCategory   string
		wantConfidence float64
		wantStrength   model.MatchStrength
		wantNil        bool
	}{
		{
			name:           "exact match",
			mcc:            "5814",
			wantCategory:   "meals",
			wantConfidence: 0.92,
			wantStrength:   model.StrengthExact,
		},
		{
			name:           "strong match keeps table confidence",
			mcc:            "6012",
			wantCategory:   "bank_fees",
			wantConfidence: 0.70,
			wantStrength:   model.StrengthStrong,
		},
		{
			name:           "exact match confidence floored at 0.85",
			mcc:            "9999",
			wantCategory:   "miscellaneous",
			wantConfidence: 0.85,
			wantStrength:   model.StrengthExact,
		},
		{
			name:    "unknown code yields no signal",
			mcc:     "1234",
			wantNil: true,
		},
		{
			name:    "missing code yields no signal",
			mcc:     "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := extractor.Extract(model.Transaction{MCC: tt.mcc})
			if tt.wantNil {
				assert.Nil(t, sig)
				return
			}
			require.NotNil(t, sig)
			assert.Equal(t, model.SignalMCC, sig.Type)
			assert.Equal(t, tt.wantCategory, sig.Category)
			assert.Equal(t, tt.wantStrength, sig.Strength)
			assert.InDelta(t, tt.wantConfidence, sig.Confidence, 1e-9)
			assert.Equal(t, tt.mcc, sig.EvidenceKey)
		})
	}
}
