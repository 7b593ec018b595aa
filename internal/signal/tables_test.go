package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func TestTablesWithRules(t *testing.T) {
	base := Tables{
		MCC: MCCTable{
			"5814": {Category: "meals", Strength: model.StrengthExact, Confidence: 0.92},
		},
		Vendors: []VendorPattern{
			{Pattern: "starbucks", Kind: VendorSubstring, Category: "meals", Confidence: 0.90, Priority: 80},
		},
		Keywords: []KeywordRule{
			{Name: "rent", Category: "rent", Keywords: []string{"rent"}, Confidence: 0.70},
		},
	}

	rules := []model.RuleVersion{
		{Type: model.RuleTypeMCC, Pattern: "5814", Category: "groceries", Confidence: 0.88, Active: true},
		{Type: model.RuleTypeVendor, Pattern: "blue bottle", Category: "meals", Confidence: 0.85, Active: true},
		{Type: model.RuleTypeKeyword, Pattern: "retainer", Category: "professional_services", Confidence: 0.80, Active: true},
		{Type: model.RuleTypeVendor, Pattern: "ignored", Category: "fuel", Confidence: 0.9, Active: false},
	}

	merged := base.WithRules(rules)

	t.Run("active mcc rule overrides the table entry", func(t *testing.T) {
		entry, ok := merged.MCC["5814"]
		require.True(t, ok)
		assert.Equal(t, "groceries", entry.Category)
		assert.Equal(t, model.StrengthExact, entry.Strength)
	})

	t.Run("vendor rule sorts above defaults", func(t *testing.T) {
		require.Len(t, merged.Vendors, 2)
		assert.Equal(t, "blue bottle", merged.Vendors[0].Pattern)
		assert.Equal(t, learnedRulePriority, merged.Vendors[0].Priority)
		assert.Equal(t, VendorExact, merged.Vendors[0].Kind)
	})

	t.Run("keyword rule is prepended", func(t *testing.T) {
		require.Len(t, merged.Keywords, 2)
		assert.Equal(t, "retainer", merged.Keywords[0].Name)
	})

	t.Run("inactive rules are skipped", func(t *testing.T) {
		for _, v := range merged.Vendors {
			assert.NotEqual(t, "ignored", v.Pattern)
		}
	})

	t.Run("base tables are not mutated", func(t *testing.T) {
		assert.Equal(t, "meals", base.MCC["5814"].Category)
		assert.Len(t, base.Vendors, 1)
		assert.Len(t, base.Keywords, 1)
	})
}

func TestVendorPatternStrength(t *testing.T) {
	assert.Equal(t, model.StrengthExact, VendorPattern{Kind: VendorExact}.Strength())
	assert.Equal(t, model.StrengthStrong, VendorPattern{Kind: VendorPrefix}.Strength())
	assert.Equal(t, model.StrengthStrong, VendorPattern{Kind: VendorRegex}.Strength())
	assert.Equal(t, model.StrengthMedium, VendorPattern{Kind: VendorSubstring}.Strength())
}
