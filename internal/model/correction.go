package model

import "time"

// Correction is a human re-categorization of a transaction. Corrections are
// the sole trigger for learned-rule derivation and oscillation tracking.
type Correction struct {
	CreatedAt     time.Time
	ID            string
	OrgID         string
	TransactionID string
	OldCategory   string
	NewCategory   string
	ActorID       string
}

// OscillationEntry is one step in a transaction's correction history.
type OscillationEntry struct {
	At       time.Time
	Category string
	ActorID  string
}

// Oscillation records a transaction whose category was corrected back and
// forth across distinct categories, indicating rule instability.
type Oscillation struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	ID            string
	OrgID         string
	TransactionID string
	FinalCategory string // Set when resolved
	Entries       []OscillationEntry
	Count         int
	Resolved      bool
}
