package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestVendorExtractor(t *testing.T) {
	patterns := []VendorPattern{
		{Pattern: "shell", Kind: VendorExact, Category: "fuel", Confidence: 0.88, Priority: 70},
		{Pattern: "uber", Kind: VendorPrefix, Category: "travel_transport", Confidence: 0.80, Priority: 60},
		{Pattern: "uber eats", Kind: VendorSubstring, Category: "meals", Confidence: 0.85, Priority: 78},
		{Pattern: `(?i)\baws\b`, Kind: VendorRegex, Category: "software_subscriptions", Confidence: 0.90, Priority: 78},
	}
	extractor := NewVendorExtractor(patterns)

	tests := []struct {
		name         string
		merchant     string
		description  string
		wantCategory string
		wantStrength model.MatchStrength
		wantNil      bool
	}{
		{
			name:         "exact match",
			merchant:     "Shell",
			wantCategory: "fuel",
			wantStrength: model.StrengthExact,
		},
		{
			name:     "exact does not match substring",
			merchant: "Shell Oil 42",
			wantNil:  true,
		},
		{
			name:         "prefix match",
			merchant:     "Uber Trip 8271",
			wantCategory: "travel_transport",
			wantStrength: model.StrengthStrong,
		},
		{
			name:         "higher priority substring beats lower priority prefix",
			merchant:     "Uber Eats Order",
			wantCategory: "meals",
			wantStrength: model.StrengthMedium,
		},
		{
			name:         "regex matches description",
			merchant:     "Amazon",
			description:  "AWS monthly bill",
			wantCategory: "software_subscriptions",
			wantStrength: model.StrengthStrong,
		},
		{
			name:     "no match",
			merchant: "Corner Bakery",
			wantNil: true,
		},
		{
			name:    "empty transaction",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := extractor.Extract(model.Transaction{
				MerchantName: tt.merchant,
				Description:  tt.description,
			})
			if tt.wantNil {
				assert.Nil(t, sig)
				return
			}
			require.NotNil(t, sig)
			assert.Equal(t, model.SignalVendor, sig.Type)
			assert.Equal(t, tt.wantCategory, sig.Category)
			assert.Equal(t, tt.wantStrength, sig.Strength)
		})
	}
}

func TestVendorExtractorDropsInvalidRegex(t *testing.T) {
	extractor := NewVendorExtractor([]VendorPattern{
		{Pattern: "a(b", Kind: VendorRegex, Category: "meals", Confidence: 0.9, Priority: 90},
		{Pattern: "cafe", Kind: VendorSubstring, Category: "meals", Confidence: 0.8, Priority: 50},
	})

	sig := extractor.Extract(model.Transaction{MerchantName: "Cafe Mondo"})
	require.NotNil(t, sig)
	assert.Equal(t, "cafe", sig.EvidenceKey)
}
