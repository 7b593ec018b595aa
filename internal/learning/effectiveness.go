package learning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
)

// auditLog emits a structured audit entry for learning-loop mutations.
func auditLog(msg string, fields map[string]any) {
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	slog.Info(msg, attrs...)
}

// TrackEffectiveness computes, per active rule, how many transactions carry
// its proposed category and what fraction were corrected away from it. The
// job is idempotent: results upsert by (rule, date).
func (s *Service) TrackEffectiveness(ctx context.Context, orgID string) ([]model.RuleEffectiveness, error) {
	rules, err := s.store.GetActiveRuleVersions(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	since := s.now().Add(-s.cfg.DeriveLookback)
	corrections, err := s.store.GetCorrectionsSince(ctx, orgID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}

	var results []model.RuleEffectiveness
	for i := range rules {
		rule := &rules[i]

		applied, appliedErr := s.countApplications(ctx, rule)
		if appliedErr != nil {
			return nil, appliedErr
		}

		correctedAway := 0
		for _, c := range corrections {
			if c.OldCategory != rule.Category || c.NewCategory == rule.Category {
				continue
			}
			txn, txnErr := s.store.GetTransactionByID(ctx, c.TransactionID)
			if txnErr != nil {
				continue
			}
			if ruleMatches(rule, *txn) {
				correctedAway++
			}
		}

		eff := model.RuleEffectiveness{
			RuleVersionID: rule.ID,
			OrgID:         orgID,
			Applications:  applied,
			CorrectedAway: correctedAway,
			Precision:     1.0,
			ComputedOn:    s.now(),
		}
		if applied > 0 {
			eff.Precision = 1.0 - float64(correctedAway)/float64(applied)
		}

		if err := s.store.UpsertRuleEffectiveness(ctx, &eff); err != nil {
			return nil, fmt.Errorf("failed to save effectiveness for %s: %w", rule.ID, err)
		}
		results = append(results, eff)

		if eff.Applications > 0 && eff.Precision < 0.5 {
			slog.Warn("Active rule performing poorly",
				"rule_version_id", rule.ID,
				"lineage", rule.LineageKey(),
				"precision", eff.Precision)
		}
	}

	return results, nil
}

// countApplications counts transactions matching the rule that carry its
// proposed category.
func (s *Service) countApplications(ctx context.Context, rule *model.RuleVersion) (int, error) {
	txns, err := s.store.GetTransactions(ctx, rule.OrgID, service.TransactionFilter{
		Category: rule.Category,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions for %s: %w", rule.Category, err)
	}

	applied := 0
	for _, txn := range txns {
		if ruleMatches(rule, txn) {
			applied++
		}
	}
	return applied, nil
}
