// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionSource indicates where a transaction record was ingested from.
type TransactionSource string

// Transaction source constants.
const (
	SourceBankFeed TransactionSource = "BANK_FEED"
	SourceImport   TransactionSource = "IMPORT"
	SourceManual   TransactionSource = "MANUAL"
)

// Transaction represents a single financial transaction from any source.
// Amounts are in minor currency units (cents); negative amounts are outflows.
type Transaction struct {
	Date         time.Time
	ID           string
	OrgID        string
	Description  string // Raw transaction description
	MerchantName string // Cleaned merchant name
	MCC          string // Merchant category code, empty if unknown
	Currency     string
	Category     string // Assigned category slug, empty until categorized
	Source       TransactionSource
	DecidedBy    DecisionSource // How the current category was assigned
	RawPayload   string // Original source payload, opaque to the engine
	Hash         string
	AmountCents  int64
	Confidence   float64
	NeedsReview  bool
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%d:%s:%s",
		t.OrgID,
		t.Date.Format("2006-01-02"),
		t.AmountCents,
		t.MerchantName,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsInflow reports whether money moved into the account.
func (t *Transaction) IsInflow() bool {
	return t.AmountCents > 0
}
