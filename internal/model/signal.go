package model

// SignalType identifies which rule source produced a categorization signal.
type SignalType string

// Signal type constants, in descending tie-break priority.
const (
	SignalMCC       SignalType = "mcc"
	SignalVendor    SignalType = "vendor"
	SignalKeyword   SignalType = "keyword"
	SignalEmbedding SignalType = "embedding"
)

// MatchStrength grades how directly a rule matched the transaction.
type MatchStrength string

// Match strength constants.
const (
	StrengthExact  MatchStrength = "exact"
	StrengthStrong MatchStrength = "strong"
	StrengthMedium MatchStrength = "medium"
	StrengthWeak   MatchStrength = "weak"
)

// Weight converts a match strength into a scoring weight.
func (s MatchStrength) Weight() float64 {
	switch s {
	case StrengthExact:
		return 1.0
	case StrengthStrong:
		return 0.8
	case StrengthMedium:
		return 0.55
	case StrengthWeak:
		return 0.3
	}
	return 0
}

// CategorizationSignal is one rule source's opinion about a transaction.
// Signals are ephemeral: created per categorization attempt, never persisted.
type CategorizationSignal struct {
	Type         SignalType
	Category     string
	Strength     MatchStrength
	EvidenceKey  string // The rule key that matched (MCC code, pattern, keyword)
	Rationale    string
	MatchedTerms []string
	Confidence   float64
}

// TypePriority returns the tie-break priority for a signal type (higher wins).
func (s CategorizationSignal) TypePriority() int {
	switch s.Type {
	case SignalMCC:
		return 4
	case SignalVendor:
		if s.Strength == StrengthExact {
			return 3
		}
		return 2
	case SignalKeyword:
		return 1
	case SignalEmbedding:
		return 0
	}
	return 0
}

// CategoryScore aggregates all signals pointing at a single candidate category.
type CategoryScore struct {
	Category    string
	Signals     []CategorizationSignal
	Dominant    CategorizationSignal // Highest-weight contributing signal
	TotalWeight float64
	Confidence  float64
}
