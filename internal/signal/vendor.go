package signal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// VendorExtractor matches merchant name and description text against an
// ordered vendor pattern list. The highest-priority match wins.
type VendorExtractor struct {
	compiled map[int]*regexp.Regexp
	patterns []VendorPattern
}

// NewVendorExtractor creates a vendor extractor with pre-compiled regex
// patterns. Patterns whose regex fails to compile are dropped; safety against
// catastrophic backtracking is established offline before admission.
func NewVendorExtractor(patterns []VendorPattern) *VendorExtractor {
	sorted := make([]VendorPattern, len(patterns))
	copy(sorted, patterns)
	sortVendorsByPriority(sorted)

	e := &VendorExtractor{
		patterns: sorted,
		compiled: make(map[int]*regexp.Regexp),
	}
	for i, p := range sorted {
		if p.Kind == VendorRegex {
			if re, err := regexp.Compile(p.Pattern); err == nil {
				e.compiled[i] = re
			}
		}
	}
	return e
}

// Extract returns the highest-priority vendor pattern match, or nil.
func (e *VendorExtractor) Extract(txn model.Transaction) *model.CategorizationSignal {
	merchant := strings.ToLower(strings.TrimSpace(txn.MerchantName))
	description := strings.ToLower(strings.TrimSpace(txn.Description))
	if merchant == "" && description == "" {
		return nil
	}

	for i, p := range e.patterns {
		if !e.matches(i, p, merchant, description) {
			continue
		}
		return &model.CategorizationSignal{
			Type:        model.SignalVendor,
			Category:    p.Category,
			Strength:    p.Strength(),
			Confidence:  p.Confidence,
			EvidenceKey: p.Pattern,
			Rationale:   fmt.Sprintf("vendor pattern %q (%s) matched", p.Pattern, p.Kind),
		}
	}
	return nil
}

func (e *VendorExtractor) matches(idx int, p VendorPattern, merchant, description string) bool {
	pattern := strings.ToLower(p.Pattern)

	switch p.Kind {
	case VendorExact:
		return merchant == pattern
	case VendorPrefix:
		return strings.HasPrefix(merchant, pattern)
	case VendorSuffix:
		return strings.HasSuffix(merchant, pattern)
	case VendorSubstring:
		return strings.Contains(merchant, pattern) || strings.Contains(description, pattern)
	case VendorRegex:
		re, ok := e.compiled[idx]
		if !ok {
			return false
		}
		return re.MatchString(merchant) || re.MatchString(description)
	}
	return false
}
