package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// DeriveRules aggregates recent corrections and proposes learned rule
// versions for merchants that humans repeatedly re-categorize the same way.
// Proposed rules start inactive; they still need a passing canary before
// promotion.
func (s *Service) DeriveRules(ctx context.Context, orgID string) ([]model.RuleVersion, error) {
	since := s.now().Add(-s.cfg.DeriveLookback)
	corrections, err := s.store.GetCorrectionsSince(ctx, orgID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}

	type tally struct {
		categories map[string]int
		total      int
	}
	byMerchant := make(map[string]*tally)

	for _, c := range corrections {
		txn, txnErr := s.store.GetTransactionByID(ctx, c.TransactionID)
		if txnErr != nil {
			slog.Warn("Skipping correction with missing transaction",
				"correction_id", c.ID,
				"transaction_id", c.TransactionID,
				"error", txnErr)
			continue
		}
		merchant := normalizePattern(txn.MerchantName)
		if merchant == "" {
			continue
		}
		t := byMerchant[merchant]
		if t == nil {
			t = &tally{categories: make(map[string]int)}
			byMerchant[merchant] = t
		}
		t.categories[c.NewCategory]++
		t.total++
	}

	var derived []model.RuleVersion
	for merchant, t := range byMerchant {
		category, count := dominantCategory(t.categories)
		if count < s.cfg.DeriveMinCorrections {
			continue
		}
		// Disagreeing corrections mean the merchant is ambiguous, and an
		// oscillation is likely already tracking it.
		if count < t.total {
			continue
		}

		latest, latestErr := s.store.GetLatestRuleVersion(ctx, orgID, model.RuleTypeVendor, merchant)
		if latestErr != nil {
			return nil, fmt.Errorf("failed to check lineage for %q: %w", merchant, latestErr)
		}
		if latest != nil && latest.Category == category {
			continue
		}

		rule, createErr := s.CreateRuleVersion(ctx, orgID, model.RuleTypeVendor, merchant, category, s.cfg.LearnedRuleConfidence, model.RuleSourceLearned)
		if createErr != nil {
			return nil, fmt.Errorf("failed to create learned rule for %q: %w", merchant, createErr)
		}
		derived = append(derived, *rule)

		slog.Info("Derived learned rule from corrections",
			"org_id", orgID,
			"merchant", merchant,
			"category", category,
			"corrections", count)
	}

	return derived, nil
}

func dominantCategory(counts map[string]int) (string, int) {
	best, bestCount := "", 0
	for category, count := range counts {
		if count > bestCount || (count == bestCount && strings.Compare(category, best) < 0) {
			best, bestCount = category, count
		}
	}
	return best, bestCount
}
