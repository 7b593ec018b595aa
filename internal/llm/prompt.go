package llm

import (
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// BuildPrompt constructs the categorization prompt for a transaction.
// Pass-1 signals, when present, are included as auxiliary context so the
// model can agree or disagree with the deterministic path explicitly.
func BuildPrompt(txn model.Transaction, categories []model.Category, signals []model.CategorizationSignal) string {
	var b strings.Builder

	b.WriteString("Categorize this financial transaction into exactly one of the known categories.\n\n")
	b.WriteString("Transaction:\n")
	fmt.Fprintf(&b, "  Description: %s\n", txn.Description)
	if txn.MerchantName != "" {
		fmt.Fprintf(&b, "  Merchant: %s\n", txn.MerchantName)
	}
	if txn.MCC != "" {
		fmt.Fprintf(&b, "  MCC: %s\n", txn.MCC)
	}
	fmt.Fprintf(&b, "  Amount: %.2f %s\n", float64(txn.AmountCents)/100, txn.Currency)
	fmt.Fprintf(&b, "  Date: %s\n", txn.Date.Format("2006-01-02"))

	b.WriteString("\nKnown categories:\n")
	for _, c := range categories {
		if !c.IsActive {
			continue
		}
		fmt.Fprintf(&b, "  - %s (%s): %s\n", c.Slug, c.Type, c.Description)
	}

	if len(signals) > 0 {
		b.WriteString("\nRule-engine signals (advisory, may be wrong):\n")
		for _, s := range signals {
			fmt.Fprintf(&b, "  - %s suggests %s (%.2f): %s\n", s.Type, s.Category, s.Confidence, s.Rationale)
		}
	}

	b.WriteString("\nRespond with JSON only:\n")
	b.WriteString(`{"category": "<slug>", "confidence": <0.0-1.0>, "rationale": "<one sentence>", "attributes": {}}`)
	b.WriteString("\n")

	return b.String()
}
