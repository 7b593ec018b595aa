package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/guardrail"
	"github.com/ledgerline/ledgerline/internal/llm"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
	"golang.org/x/sync/errgroup"
)

// HybridConfig holds the orchestrator's decision thresholds.
type HybridConfig struct {
	Retry service.RetryOptions
	// AcceptThreshold is the Pass-1 confidence at which no fallback runs.
	AcceptThreshold float64
	// HighRiskThreshold replaces AcceptThreshold for risky shapes.
	HighRiskThreshold float64
	// ReviewFloor and ReviewCeiling bound the dynamic needs-review bar.
	ReviewFloor   float64
	ReviewCeiling float64
	// MiscConfidence is assigned when model output must be coerced to the
	// miscellaneous fallback.
	MiscConfidence float64
	Temperature    float64
	MaxParallel    int
	EnableFallback bool
}

// DefaultHybridConfig returns the standard orchestrator configuration.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		AcceptThreshold:   0.95,
		HighRiskThreshold: 0.99,
		ReviewFloor:       0.90,
		ReviewCeiling:     0.99,
		MiscConfidence:    0.20,
		Temperature:       0.2,
		MaxParallel:       4,
		EnableFallback:    true,
		Retry: service.RetryOptions{
			MaxAttempts: 3,
		},
	}
}

// payoutRedirectFactor reduces confidence when the payout-redirect rule
// overrides the scored category.
const payoutRedirectFactor = 0.8

// Pass2Result records the model fallback's contribution.
type Pass2Result struct {
	Category         string
	OriginalCategory string
	Rationale        string
	Attributes       map[string]string
	Confidence       float64
	// GuardrailCorrected is set when re-applied guardrails changed the
	// model's proposal.
	GuardrailCorrected bool
}

// Result is the hybrid orchestrator's final decision for one transaction.
type Result struct {
	Category    string
	Rationale   []string
	Pass1       Pass1Result
	Pass2       *Pass2Result
	Source      model.DecisionSource
	Confidence  float64
	NeedsReview bool
}

// Hybrid selects between the deterministic Pass-1 result and the
// generative-model Pass-2 fallback.
type Hybrid struct {
	pass1        *Engine
	client       llm.Client
	categories   *model.CategorySet
	guardrailCfg guardrail.Config
	cfg          HybridConfig
}

// NewHybrid creates the hybrid orchestrator. The client may be nil when the
// fallback is disabled.
func NewHybrid(pass1 *Engine, client llm.Client, categories *model.CategorySet, guardrailCfg guardrail.Config, cfg HybridConfig) *Hybrid {
	return &Hybrid{
		pass1:        pass1,
		client:       client,
		categories:   categories,
		guardrailCfg: guardrailCfg,
		cfg:          cfg,
	}
}

// Categorize runs the full hybrid state machine for one transaction.
func (h *Hybrid) Categorize(ctx context.Context, txn model.Transaction) (Result, error) {
	p1 := h.pass1.Categorize(txn)

	// The payout-redirect rule wins over everything: processor payouts land
	// in the clearing category regardless of the scored candidate.
	if isPayoutShape(txn) {
		return h.redirectPayout(txn, p1), nil
	}

	risk := assessRisk(txn, p1.Category, h.categories)
	threshold := h.cfg.AcceptThreshold
	if risk.highRisk() {
		threshold = h.cfg.HighRiskThreshold
	}

	if p1.Category != "" && p1.Confidence >= threshold {
		return h.acceptPass1(txn, p1, false), nil
	}

	if !h.cfg.EnableFallback || h.client == nil {
		// Accept the deterministic result as-is, below threshold, and let a
		// human look at it.
		return h.acceptPass1(txn, p1, true), nil
	}

	p2, err := h.runPass2(ctx, txn, p1)
	if err != nil {
		slog.Warn("Model fallback exhausted, degrading to Pass-1",
			"transaction_id", txn.ID,
			"error", err)
		return h.acceptPass1(txn, p1, true), nil
	}

	return h.selectResult(txn, p1, p2), nil
}

// CategorizeBatch categorizes transactions with a bounded worker pool.
// Transactions are independent; order of results matches input order.
func (h *Hybrid) CategorizeBatch(ctx context.Context, txns []model.Transaction) ([]Result, error) {
	results := make([]Result, len(txns))

	g, ctx := errgroup.WithContext(ctx)
	limit := h.cfg.MaxParallel
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, txn := range txns {
		g.Go(func() error {
			res, err := h.Categorize(ctx, txn)
			if err != nil {
				return fmt.Errorf("transaction %s: %w", txn.ID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Hybrid) acceptPass1(txn model.Transaction, p1 Pass1Result, forceReview bool) Result {
	needsReview := forceReview || h.needsReview(txn, p1.Category, p1.Confidence)
	if p1.Category == "" {
		needsReview = true
	}
	return Result{
		Category:    p1.Category,
		Confidence:  p1.Confidence,
		Source:      model.DecisionRule,
		NeedsReview: needsReview,
		Rationale:   p1.Rationale,
		Pass1:       p1,
	}
}

func (h *Hybrid) redirectPayout(txn model.Transaction, p1 Pass1Result) Result {
	confidence := p1.RawConfidence * payoutRedirectFactor
	if confidence == 0 {
		confidence = 0.5
	}
	rationale := append([]string{}, p1.Rationale...)
	rationale = append(rationale,
		fmt.Sprintf("payout-redirect: %s payout routed to %s", txn.MerchantName, model.CategoryPayoutsClearing))

	return Result{
		Category:    model.CategoryPayoutsClearing,
		Confidence:  confidence,
		Source:      model.DecisionRule,
		NeedsReview: h.needsReview(txn, model.CategoryPayoutsClearing, confidence),
		Rationale:   rationale,
		Pass1:       p1,
	}
}

// runPass2 calls the model with bounded retry and validates its output.
func (h *Hybrid) runPass2(ctx context.Context, txn model.Transaction, p1 Pass1Result) (*Pass2Result, error) {
	prompt := llm.BuildPrompt(txn, h.categories.All(), p1.Signals)

	var resp llm.Response
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = h.client.Classify(ctx, prompt, h.cfg.Temperature)
		return callErr
	}, h.cfg.Retry)
	if err != nil {
		return nil, err
	}

	p2 := &Pass2Result{
		Category:   resp.Category,
		Rationale:  resp.Rationale,
		Confidence: resp.Confidence,
	}

	// Unrecognized categories are coerced to the miscellaneous fallback.
	// Guardrails still run on the coerced candidate: a reject voids it, but
	// flag penalties do not shave the coerced confidence, which is already
	// a floor.
	if !h.categories.Contains(p2.Category) {
		slog.Info("Model proposed unknown category, coercing to miscellaneous",
			"transaction_id", txn.ID,
			"proposed", p2.Category)
		p2.OriginalCategory = p2.Category
		p2.Category = model.CategoryMiscellaneous
		p2.Confidence = h.cfg.MiscConfidence

		g := guardrail.Apply(txn, model.CategoryScore{
			Category:   p2.Category,
			Confidence: p2.Confidence,
		}, h.guardrailCfg)
		if !g.Allowed {
			slog.Info("Guardrails rejected coerced fallback",
				"transaction_id", txn.ID,
				"proposed", p2.OriginalCategory)
			p2.GuardrailCorrected = true
			p2.Category = g.FinalCategory
			p2.Confidence = g.FinalConfidence
		}
		return p2, nil
	}

	p2.Attributes = cleanAttributes(p2.Category, resp.Attributes)

	// Agreement with the deterministic path raises trust in the model.
	if p1.Category != "" && p1.Category == p2.Category && p2.Confidence < 0.95 {
		p2.Confidence += 0.05
	}

	// Re-apply guardrails to the model's proposal.
	g := guardrail.Apply(txn, model.CategoryScore{
		Category:   p2.Category,
		Confidence: p2.Confidence,
	}, h.guardrailCfg)

	if !g.Allowed || g.FinalConfidence != p2.Confidence {
		slog.Info("Guardrails corrected model proposal",
			"transaction_id", txn.ID,
			"original_category", p2.Category,
			"original_confidence", p2.Confidence,
			"final_category", g.FinalCategory,
			"final_confidence", g.FinalConfidence)
		p2.GuardrailCorrected = true
		p2.OriginalCategory = p2.Category
		p2.Category = g.FinalCategory
		p2.Confidence = g.FinalConfidence
	}

	return p2, nil
}

// selectResult accepts whichever pass produced the higher confidence.
func (h *Hybrid) selectResult(txn model.Transaction, p1 Pass1Result, p2 *Pass2Result) Result {
	result := Result{Pass1: p1, Pass2: p2}

	if p2.Category != "" && p2.Confidence >= p1.Confidence {
		result.Category = p2.Category
		result.Confidence = p2.Confidence
		result.Source = model.DecisionModel
		result.Rationale = append(append([]string{}, p1.Rationale...),
			fmt.Sprintf("model: %s", p2.Rationale))
	} else {
		result.Category = p1.Category
		result.Confidence = p1.Confidence
		result.Source = model.DecisionRule
		result.Rationale = p1.Rationale
	}

	result.NeedsReview = result.Category == "" ||
		h.needsReview(txn, result.Category, result.Confidence)
	return result
}

// needsReview applies the dynamic review threshold: risk factors shift the
// acceptance bar between the configured floor and ceiling.
func (h *Hybrid) needsReview(txn model.Transaction, category string, confidence float64) bool {
	if category == "" {
		return true
	}
	risk := assessRisk(txn, category, h.categories)
	return confidence < risk.reviewThreshold(h.cfg.ReviewFloor, h.cfg.ReviewCeiling)
}
