package model

import "time"

// RuleType identifies which extractor a rule version belongs to.
type RuleType string

// Rule type constants.
const (
	RuleTypeMCC     RuleType = "mcc"
	RuleTypeVendor  RuleType = "vendor"
	RuleTypeKeyword RuleType = "keyword"
)

// RuleSource indicates how a rule version came into existence.
type RuleSource string

const (
	// RuleSourceManual indicates a rule created by an operator; active on creation.
	RuleSourceManual RuleSource = "manual"
	// RuleSourceLearned indicates a rule derived from corrections; must pass
	// a canary test before activation.
	RuleSourceLearned RuleSource = "learned"
)

// RuleVersion is one version in a (org, rule type, pattern) rule lineage.
// Version numbers strictly increase within a lineage and at most one version
// per lineage is active at a time.
type RuleVersion struct {
	CreatedAt     time.Time
	ID            string
	OrgID         string
	Type          RuleType
	Pattern       string // The rule key: MCC code, vendor pattern, or keyword
	Category      string
	Source        RuleSource
	ParentID      string // Empty for the first version in a lineage
	Version       int
	Confidence    float64
	Active        bool
	DeactivatedAt *time.Time
}

// LineageKey returns the key identifying this version's lineage.
func (r *RuleVersion) LineageKey() string {
	return r.OrgID + "/" + string(r.Type) + "/" + r.Pattern
}

// CanaryTestResult records the evaluation of one rule version against a
// held-out sample of historical transactions with known ground truth.
type CanaryTestResult struct {
	TestedAt      time.Time
	ID            string
	RuleVersionID string
	OrgID         string
	SampleSize    int
	Correct       int
	Accuracy      float64
	Threshold     float64
	Passed        bool
	// Inconclusive marks a zero-sample canary. Policy: inconclusive never
	// qualifies a rule for promotion.
	Inconclusive bool
}

// RuleEffectiveness is a precision proxy for an active rule: how often its
// proposals were later corrected away.
type RuleEffectiveness struct {
	ComputedOn    time.Time
	RuleVersionID string
	OrgID         string
	Applications  int
	CorrectedAway int
	Precision     float64
}
