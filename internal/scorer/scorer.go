// Package scorer aggregates categorization signals into ranked candidate
// categories with calibrated confidence.
package scorer

import (
	"sort"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Amount thresholds (cents, absolute value) above which a category's
// confidence takes a soft plausibility haircut. This is calibration, not a
// veto; hard limits live in the guardrail layer.
var implausibleAmounts = map[string]int64{
	"meals":         50_000,
	"personal_care": 50_000,
	"fuel":          30_000,
	"groceries":     150_000,
	"bank_fees":     20_000,
}

const implausibleAmountModifier = 0.92

// Score groups signals by candidate category and returns candidates ranked
// by total weight. Ties are broken by declared signal-type priority, then by
// category name, never arbitrarily.
func Score(txn model.Transaction, signals []model.CategorizationSignal) []model.CategoryScore {
	if len(signals) == 0 {
		return nil
	}

	byCategory := make(map[string][]model.CategorizationSignal)
	for _, s := range signals {
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}

	scores := make([]model.CategoryScore, 0, len(byCategory))
	for category, group := range byCategory {
		scores = append(scores, scoreCategory(txn, category, group))
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TotalWeight != scores[j].TotalWeight {
			return scores[i].TotalWeight > scores[j].TotalWeight
		}
		pi, pj := scores[i].Dominant.TypePriority(), scores[j].Dominant.TypePriority()
		if pi != pj {
			return pi > pj
		}
		return scores[i].Category < scores[j].Category
	})

	return scores
}

func scoreCategory(txn model.Transaction, category string, group []model.CategorizationSignal) model.CategoryScore {
	var totalWeight, weightedConf float64
	dominant := group[0]
	types := make(map[model.SignalType]bool)
	hasExact := false

	for _, s := range group {
		w := s.Strength.Weight()
		totalWeight += w
		weightedConf += s.Confidence * w
		types[s.Type] = true
		if s.Strength == model.StrengthExact {
			hasExact = true
		}
		if w > dominant.Strength.Weight() ||
			(w == dominant.Strength.Weight() && s.TypePriority() > dominant.TypePriority()) {
			dominant = s
		}
	}

	raw := 0.0
	if totalWeight > 0 {
		raw = weightedConf / totalWeight
	}

	confidence := Calibrate(raw, Agreement{
		SignalCount:   len(group),
		DistinctTypes: len(types),
		HasExact:      hasExact,
	})

	if limit, ok := implausibleAmounts[category]; ok {
		if abs(txn.AmountCents) >= limit {
			confidence *= implausibleAmountModifier
		}
	}

	return model.CategoryScore{
		Category:    category,
		Signals:     sortedByWeight(group),
		Dominant:    dominant,
		TotalWeight: totalWeight,
		Confidence:  confidence,
	}
}

// sortedByWeight orders contributing signals by weight then type priority so
// the rationale reads strongest-first.
func sortedByWeight(signals []model.CategorizationSignal) []model.CategorizationSignal {
	out := make([]model.CategorizationSignal, len(signals))
	copy(out, signals)
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Strength.Weight(), out[j].Strength.Weight()
		if wi != wj {
			return wi > wj
		}
		return out[i].TypePriority() > out[j].TypePriority()
	})
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
