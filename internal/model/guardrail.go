package model

// ViolationType identifies which guardrail check a candidate failed.
type ViolationType string

// Violation type constants.
const (
	ViolationMCCIncompatible   ViolationType = "mcc_incompatible"
	ViolationAmountUnrealistic ViolationType = "amount_unrealistic"
	ViolationConfidenceTooLow  ViolationType = "confidence_too_low"
	ViolationCategoryBlacklist ViolationType = "category_blacklisted"
	ViolationSuspiciousPattern ViolationType = "suspicious_pattern"
)

// ViolationAction is the remedy a guardrail suggests for a violation.
type ViolationAction string

// Violation action constants.
const (
	// ActionReject voids the candidate category entirely.
	ActionReject ViolationAction = "reject"
	// ActionFlag lets the candidate through at reduced confidence.
	ActionFlag ViolationAction = "flag"
	// ActionOverride replaces the candidate with a mandated category.
	ActionOverride ViolationAction = "override"
)

// GuardrailViolation records one failed guardrail check.
type GuardrailViolation struct {
	Type     ViolationType
	Reason   string
	Category string // The candidate category the violation applies to
	Action   ViolationAction
}
