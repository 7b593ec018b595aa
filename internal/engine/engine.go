// Package engine implements the hybrid categorization engine: the
// deterministic Pass-1 rule path and the Pass-2 generative-model fallback.
package engine

import (
	"fmt"

	"github.com/ledgerline/ledgerline/internal/guardrail"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/scorer"
	"github.com/ledgerline/ledgerline/internal/signal"
)

// Observer receives analytics events from the engine. Observers are optional
// and never required for correctness.
type Observer func(event string, fields map[string]any)

// Engine is the deterministic Pass-1 categorizer: extractors, scorer, and
// guardrails composed into a side-effect-free pipeline.
type Engine struct {
	mcc          *signal.MCCExtractor
	vendor       *signal.VendorExtractor
	keyword      *signal.KeywordExtractor
	guardrailCfg guardrail.Config
	observer     Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches an analytics callback.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates a Pass-1 engine over immutable rule tables.
func NewEngine(tables signal.Tables, guardrailCfg guardrail.Config, opts ...Option) *Engine {
	e := &Engine{
		mcc:          signal.NewMCCExtractor(tables.MCC),
		vendor:       signal.NewVendorExtractor(tables.Vendors),
		keyword:      signal.NewKeywordExtractor(tables.Keywords),
		guardrailCfg: guardrailCfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pass1Result is a fully-rationalized deterministic categorization.
type Pass1Result struct {
	Category          string
	Rationale         []string
	Signals           []model.CategorizationSignal
	Candidates        []model.CategoryScore
	Violations        []model.GuardrailViolation
	GuardrailsChecked []string
	Confidence        float64
	// RawConfidence is the top candidate's confidence before guardrails.
	RawConfidence float64
}

// Categorize runs extractors, scorer, and guardrails over one transaction.
// It never performs I/O; absence of a category is the normal negative case.
func (e *Engine) Categorize(txn model.Transaction) Pass1Result {
	var signals []model.CategorizationSignal
	for _, s := range []*model.CategorizationSignal{
		e.mcc.Extract(txn),
		e.vendor.Extract(txn),
		e.keyword.Extract(txn),
	} {
		if s != nil {
			signals = append(signals, *s)
		}
	}

	result := Pass1Result{Signals: signals}

	candidates := scorer.Score(txn, signals)
	result.Candidates = candidates
	if len(candidates) == 0 {
		result.Rationale = []string{"no rule source produced a signal"}
		e.emit("pass1.no_signal", map[string]any{"transaction_id": txn.ID})
		return result
	}

	top := candidates[0]
	result.RawConfidence = top.Confidence
	for _, s := range top.Signals {
		result.Rationale = append(result.Rationale, s.Rationale)
	}

	g := guardrail.Apply(txn, top, e.guardrailCfg)
	result.GuardrailsChecked = g.Checked
	result.Violations = g.Violations
	for _, v := range g.Violations {
		result.Rationale = append(result.Rationale,
			fmt.Sprintf("guardrail %s (%s): %s", v.Type, v.Action, v.Reason))
	}

	if !g.Allowed {
		e.emit("pass1.guardrail_rejected", map[string]any{
			"transaction_id": txn.ID,
			"category":       top.Category,
		})
		return result
	}

	result.Category = g.FinalCategory
	result.Confidence = g.FinalConfidence
	e.emit("pass1.categorized", map[string]any{
		"transaction_id": txn.ID,
		"category":       result.Category,
		"confidence":     result.Confidence,
	})
	return result
}

func (e *Engine) emit(event string, fields map[string]any) {
	if e.observer != nil {
		e.observer(event, fields)
	}
}
