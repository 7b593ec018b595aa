package engine

import (
	"regexp"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Known payment-processor merchants. A processor name proposed as plain
// revenue, or paired with payout language, needs special handling.
var paymentProcessors = map[string]bool{
	"stripe":           true,
	"paypal":           true,
	"square":           true,
	"adyen":            true,
	"braintree":        true,
	"shopify payments": true,
}

var invoiceLanguage = regexp.MustCompile(`(?i)\b(invoice|inv\s*#|po\s*#|purchase\s+order)\b`)

var payoutLanguage = regexp.MustCompile(`(?i)\b(payout|settlement|disbursement)\b`)

// riskProfile captures the factors that shift acceptance and review bars.
type riskProfile struct {
	directionMismatch bool
	processorRevenue  bool
	invoiceLike       bool
}

func assessRisk(txn model.Transaction, category string, categories *model.CategorySet) riskProfile {
	var p riskProfile

	if cat, ok := categories.Get(category); ok {
		// Money flowing in but proposed as an expense, or out as income,
		// needs near-certainty.
		if txn.IsInflow() && cat.Type == model.CategoryTypeExpense {
			p.directionMismatch = true
		}
		if !txn.IsInflow() && cat.Type == model.CategoryTypeIncome {
			p.directionMismatch = true
		}
		if cat.Type == model.CategoryTypeIncome && isPaymentProcessor(txn.MerchantName) {
			p.processorRevenue = true
		}
	}

	if invoiceLanguage.MatchString(txn.Description) {
		p.invoiceLike = true
	}

	return p
}

// highRisk reports whether acceptance requires the raised threshold.
func (p riskProfile) highRisk() bool {
	return p.directionMismatch || p.processorRevenue
}

// reviewThreshold computes the dynamic needs-review bar for the profile,
// bounded to [floor, ceiling].
func (p riskProfile) reviewThreshold(floor, ceiling float64) float64 {
	t := floor
	if p.directionMismatch {
		t += 0.05
	}
	if p.processorRevenue {
		t += 0.05
	}
	if p.invoiceLike {
		t += 0.03
	}
	if t > ceiling {
		t = ceiling
	}
	return t
}

func isPaymentProcessor(merchant string) bool {
	m := strings.ToLower(strings.TrimSpace(merchant))
	if paymentProcessors[m] {
		return true
	}
	for name := range paymentProcessors {
		if strings.HasPrefix(m, name+" ") || strings.HasPrefix(m, name+"*") {
			return true
		}
	}
	return false
}

// isPayoutShape reports whether a transaction looks like a payment-processor
// payout: processor merchant plus payout or transfer language.
func isPayoutShape(txn model.Transaction) bool {
	if !isPaymentProcessor(txn.MerchantName) {
		return false
	}
	text := txn.Description
	return payoutLanguage.MatchString(text) || strings.Contains(strings.ToLower(text), "transfer")
}
