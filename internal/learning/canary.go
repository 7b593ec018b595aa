package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
)

// RunCanaryTest evaluates a candidate rule version against a held-out sample
// of historical transactions with known ground truth. Transactions newer
// than the holdout age are excluded so very recent, possibly-unstable
// corrections cannot contaminate the test.
//
// A zero-sample canary is inconclusive and by policy never passes: an
// untested rule must not be promotable by accident.
func (s *Service) RunCanaryTest(ctx context.Context, ruleVersionID string) (*model.CanaryTestResult, error) {
	rule, err := s.store.GetRuleVersion(ctx, ruleVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule version: %w", err)
	}

	cutoff := s.now().Add(-s.cfg.CanaryHoldoutAge)
	txns, err := s.store.GetTransactions(ctx, rule.OrgID, service.TransactionFilter{
		EndDate: &cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load held-out transactions: %w", err)
	}

	result := &model.CanaryTestResult{
		ID:            uuid.NewString(),
		RuleVersionID: rule.ID,
		OrgID:         rule.OrgID,
		Threshold:     s.cfg.CanaryAccuracyThreshold,
		TestedAt:      s.now(),
	}

	for _, txn := range txns {
		if txn.Category == "" || !ruleMatches(rule, txn) {
			continue
		}
		result.SampleSize++
		if txn.Category == rule.Category {
			result.Correct++
		}
	}

	if result.SampleSize == 0 {
		result.Inconclusive = true
		result.Passed = false
	} else {
		result.Accuracy = float64(result.Correct) / float64(result.SampleSize)
		result.Passed = result.Accuracy >= result.Threshold &&
			result.SampleSize >= s.cfg.CanaryMinSampleSize
	}

	if err := s.store.SaveCanaryResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save canary result: %w", err)
	}
	return result, nil
}

// ruleMatches applies a rule version's pattern to a transaction the same way
// the runtime extractors would.
func ruleMatches(rule *model.RuleVersion, txn model.Transaction) bool {
	switch rule.Type {
	case model.RuleTypeMCC:
		return txn.MCC == rule.Pattern
	case model.RuleTypeVendor:
		// Admitted vendor rules match the merchant exactly, so the canary
		// must not give credit for looser substring hits.
		return strings.ToLower(txn.MerchantName) == rule.Pattern
	case model.RuleTypeKeyword:
		text := strings.ToLower(txn.Description + " " + txn.MerchantName)
		return strings.Contains(text, rule.Pattern)
	}
	return false
}
