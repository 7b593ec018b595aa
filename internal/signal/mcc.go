package signal

import (
	"fmt"

	"github.com/ledgerline/ledgerline/internal/model"
)

// MCCExtractor produces a signal from a transaction's merchant category code.
type MCCExtractor struct {
	table MCCTable
}

// NewMCCExtractor creates an MCC extractor over the given table.
func NewMCCExtractor(table MCCTable) *MCCExtractor {
	return &MCCExtractor{table: table}
}

// Extract looks up the transaction's MCC. Unknown or missing codes yield no
// signal; absence is the normal negative case, never an error.
func (e *MCCExtractor) Extract(txn model.Transaction) *model.CategorizationSignal {
	if txn.MCC == "" {
		return nil
	}

	entry, ok := e.table[txn.MCC]
	if !ok {
		return nil
	}

	confidence := entry.Confidence
	if entry.Strength == model.StrengthExact && confidence < 0.85 {
		// Exact MCC matches carry high certainty by contract
		confidence = 0.85
	}

	return &model.CategorizationSignal{
		Type:        model.SignalMCC,
		Category:    entry.Category,
		Strength:    entry.Strength,
		Confidence:  confidence,
		EvidenceKey: txn.MCC,
		Rationale:   fmt.Sprintf("MCC %s maps to %s", txn.MCC, entry.Category),
	}
}
