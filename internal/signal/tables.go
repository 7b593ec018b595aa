// Package signal implements the rule sources that turn a transaction into
// categorization signals: MCC lookup, vendor pattern matching, and keyword
// matching. Extractors are pure functions over immutable rule tables.
package signal

import (
	"sort"

	"github.com/ledgerline/ledgerline/internal/model"
)

// MCCEntry maps a merchant category code to a candidate category.
type MCCEntry struct {
	Category   string
	Strength   model.MatchStrength
	Confidence float64
}

// MCCTable is an immutable lookup table from MCC code to category.
type MCCTable map[string]MCCEntry

// VendorMatchKind identifies how a vendor pattern matches merchant text.
type VendorMatchKind string

// Vendor match kind constants.
const (
	VendorExact     VendorMatchKind = "exact"
	VendorPrefix    VendorMatchKind = "prefix"
	VendorSuffix    VendorMatchKind = "suffix"
	VendorSubstring VendorMatchKind = "substring"
	VendorRegex     VendorMatchKind = "regex"
)

// VendorPattern matches merchant name or description text against a category.
// Regex patterns must pass the offline linear-time safety check before being
// admitted to a table; the extractor assumes admitted patterns are safe.
type VendorPattern struct {
	Pattern    string
	Kind       VendorMatchKind
	Category   string
	Confidence float64
	Priority   int
}

// Strength grades the match kind for scoring purposes.
func (p VendorPattern) Strength() model.MatchStrength {
	switch p.Kind {
	case VendorExact:
		return model.StrengthExact
	case VendorPrefix, VendorSuffix, VendorRegex:
		return model.StrengthStrong
	case VendorSubstring:
		return model.StrengthMedium
	}
	return model.StrengthWeak
}

// KeywordRule scores description text against a domain-scoped keyword list.
// Any exclude term present in the text disqualifies the rule.
type KeywordRule struct {
	Name       string
	Category   string
	Keywords   []string
	Excludes   []string
	Confidence float64
}

// Tables bundles all rule tables consumed by the extractors. Tables are
// constructed once at load time and never mutated; the learning loop produces
// new versions rather than editing in place.
type Tables struct {
	MCC      MCCTable
	Vendors  []VendorPattern
	Keywords []KeywordRule
}

// WithRules returns a copy of the tables extended with active rule versions.
// Learned and manual rules take precedence over compiled-in defaults: MCC
// rules override table entries, vendor rules are added at high priority, and
// keyword rules are prepended.
func (t Tables) WithRules(rules []model.RuleVersion) Tables {
	out := Tables{
		MCC:      make(MCCTable, len(t.MCC)+len(rules)),
		Vendors:  make([]VendorPattern, len(t.Vendors), len(t.Vendors)+len(rules)),
		Keywords: make([]KeywordRule, 0, len(t.Keywords)+len(rules)),
	}
	for code, entry := range t.MCC {
		out.MCC[code] = entry
	}
	copy(out.Vendors, t.Vendors)

	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		switch rule.Type {
		case model.RuleTypeMCC:
			out.MCC[rule.Pattern] = MCCEntry{
				Category:   rule.Category,
				Strength:   model.StrengthExact,
				Confidence: rule.Confidence,
			}
		case model.RuleTypeVendor:
			out.Vendors = append(out.Vendors, VendorPattern{
				Pattern:    rule.Pattern,
				Kind:       VendorExact,
				Category:   rule.Category,
				Confidence: rule.Confidence,
				Priority:   learnedRulePriority,
			})
		case model.RuleTypeKeyword:
			out.Keywords = append(out.Keywords, KeywordRule{
				Name:       rule.Pattern,
				Category:   rule.Category,
				Keywords:   []string{rule.Pattern},
				Confidence: rule.Confidence,
			})
		}
	}

	out.Keywords = append(out.Keywords, t.Keywords...)
	sortVendorsByPriority(out.Vendors)
	return out
}

// learnedRulePriority places rule-version vendor patterns above defaults.
const learnedRulePriority = 100

func sortVendorsByPriority(patterns []VendorPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Priority > patterns[j].Priority
	})
}
