// Package guardrail validates categorization candidates against
// compatibility, realism, and pattern rules. A guardrail can veto or
// down-weight a candidate regardless of its raw confidence.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Config holds the guardrail thresholds and toggles. Every Apply call is
// pure given its config; there is no hidden global state.
type Config struct {
	AmountLimits            map[string]int64    // category -> cents threshold, at/above is suspect
	MCCCompat               map[string][]string // mcc -> categories plausible for that code
	BlacklistedCategories   []string
	MinConfidence           float64
	EnforceMCCCompatibility bool
	EnableAmountChecks      bool
	EnablePatternChecks     bool
	StrictMode              bool
}

// DefaultConfig returns the standard guardrail configuration.
func DefaultConfig() Config {
	return Config{
		EnforceMCCCompatibility: true,
		EnableAmountChecks:      true,
		EnablePatternChecks:     true,
		MinConfidence:           0.30,
		AmountLimits: map[string]int64{
			"meals":         100_000,
			"personal_care": 100_000,
			"fuel":          50_000,
			"bank_fees":     50_000,
			"groceries":     300_000,
		},
		MCCCompat: map[string][]string{
			"5812": {"meals", "groceries"},
			"5814": {"meals", "groceries"},
			"5411": {"groceries", "meals"},
			"5541": {"fuel", "travel_transport"},
			"4511": {"travel_transport"},
			"7230": {"personal_care"},
		},
	}
}

// flagPenaltyFactor is applied to confidence once per flag-tagged violation.
const flagPenaltyFactor = 0.8

// Suspicious description/merchant shapes that should never be silently
// categorized: transfers, refunds, and test traffic.
var suspiciousPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)\b(bank\s*)?transfer\b`), "transfer language in description"},
	{regexp.MustCompile(`(?i)\bxfer\b`), "transfer language in description"},
	{regexp.MustCompile(`(?i)\b(refund|chargeback|reversal)\b`), "refund or reversal language"},
	{regexp.MustCompile(`(?i)\btest(ing)?\s+(txn|transaction|payment|charge)\b`), "test traffic"},
}

// Result reports the outcome of a guardrail evaluation. Every check that ran
// is listed in Checked, and all violations are reported, not just the first.
type Result struct {
	FinalCategory   string
	Violations      []model.GuardrailViolation
	Checked         []string
	FinalConfidence float64
	Allowed         bool
}

// Apply runs all guardrail checks against the top candidate in fixed order.
// Any reject-tagged violation, or any violation under strict mode, voids the
// category entirely; flag-tagged violations reduce confidence.
func Apply(txn model.Transaction, candidate model.CategoryScore, cfg Config) Result {
	result := Result{
		FinalCategory:   candidate.Category,
		FinalConfidence: candidate.Confidence,
	}

	if cfg.EnforceMCCCompatibility {
		result.Checked = append(result.Checked, "mcc_compatibility")
		if v := checkMCCCompatibility(txn, candidate, cfg); v != nil {
			result.Violations = append(result.Violations, *v)
		}
	}

	if cfg.EnableAmountChecks {
		result.Checked = append(result.Checked, "amount_realism")
		if v := checkAmountRealism(txn, candidate, cfg); v != nil {
			result.Violations = append(result.Violations, *v)
		}
	}

	if cfg.EnablePatternChecks {
		result.Checked = append(result.Checked, "suspicious_pattern")
		if v := checkSuspiciousPattern(txn, candidate); v != nil {
			result.Violations = append(result.Violations, *v)
		}
	}

	result.Checked = append(result.Checked, "category_blacklist")
	if v := checkBlacklist(candidate, cfg); v != nil {
		result.Violations = append(result.Violations, *v)
	}

	result.Checked = append(result.Checked, "minimum_confidence")
	if v := checkMinConfidence(candidate, cfg); v != nil {
		result.Violations = append(result.Violations, *v)
	}

	return decide(result, cfg)
}

// decide applies the decision policy over the collected violations.
func decide(result Result, cfg Config) Result {
	rejected := false
	for _, v := range result.Violations {
		switch {
		case v.Action == model.ActionReject:
			rejected = true
		case cfg.StrictMode:
			rejected = true
		case v.Action == model.ActionFlag:
			result.FinalConfidence *= flagPenaltyFactor
		}
	}

	if rejected {
		// A rejection is never partial: the candidate is voided entirely.
		result.Allowed = false
		result.FinalCategory = ""
		result.FinalConfidence = 0
		return result
	}

	result.Allowed = true
	return result
}

func checkMCCCompatibility(txn model.Transaction, candidate model.CategoryScore, cfg Config) *model.GuardrailViolation {
	if txn.MCC == "" {
		return nil
	}
	allowed, known := cfg.MCCCompat[txn.MCC]
	if !known {
		return nil
	}
	for _, cat := range allowed {
		if cat == candidate.Category {
			return nil
		}
	}
	return &model.GuardrailViolation{
		Type:     model.ViolationMCCIncompatible,
		Reason:   fmt.Sprintf("MCC %s is not plausible for category %s", txn.MCC, candidate.Category),
		Category: candidate.Category,
		Action:   model.ActionFlag,
	}
}

func checkAmountRealism(txn model.Transaction, candidate model.CategoryScore, cfg Config) *model.GuardrailViolation {
	limit, ok := cfg.AmountLimits[candidate.Category]
	if !ok {
		return nil
	}
	amount := txn.AmountCents
	if amount < 0 {
		amount = -amount
	}
	if amount < limit {
		return nil
	}
	return &model.GuardrailViolation{
		Type:     model.ViolationAmountUnrealistic,
		Reason:   fmt.Sprintf("amount %d exceeds realistic limit %d for %s", amount, limit, candidate.Category),
		Category: candidate.Category,
		Action:   model.ActionFlag,
	}
}

func checkSuspiciousPattern(txn model.Transaction, candidate model.CategoryScore) *model.GuardrailViolation {
	text := txn.Description + " " + txn.MerchantName
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(text) {
			return &model.GuardrailViolation{
				Type:     model.ViolationSuspiciousPattern,
				Reason:   p.reason,
				Category: candidate.Category,
				Action:   model.ActionReject,
			}
		}
	}
	return nil
}

func checkBlacklist(candidate model.CategoryScore, cfg Config) *model.GuardrailViolation {
	for _, blocked := range cfg.BlacklistedCategories {
		if blocked == candidate.Category {
			return &model.GuardrailViolation{
				Type:     model.ViolationCategoryBlacklist,
				Reason:   fmt.Sprintf("category %s is blacklisted for automatic assignment", blocked),
				Category: candidate.Category,
				Action:   model.ActionReject,
			}
		}
	}
	return nil
}

func checkMinConfidence(candidate model.CategoryScore, cfg Config) *model.GuardrailViolation {
	if candidate.Confidence >= cfg.MinConfidence {
		return nil
	}
	return &model.GuardrailViolation{
		Type:     model.ViolationConfidenceTooLow,
		Reason:   fmt.Sprintf("confidence %.2f below minimum %.2f", candidate.Confidence, cfg.MinConfidence),
		Category: candidate.Category,
		Action:   model.ActionFlag,
	}
}
