// Package learning implements the self-improvement loop: versioned rules
// derived from human corrections, canary testing against historical ground
// truth, promotion and rollback, oscillation detection, and effectiveness
// tracking.
package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
)

// Config holds the learning-loop policy knobs.
type Config struct {
	// CanaryAccuracyThreshold is the minimum held-out accuracy for a canary
	// to pass.
	CanaryAccuracyThreshold float64
	// CanaryMinSampleSize is the minimum held-out sample for a conclusive
	// canary.
	CanaryMinSampleSize int
	// CanaryHoldoutAge excludes transactions newer than this from canary
	// samples; very recent corrections may still be unstable.
	CanaryHoldoutAge time.Duration
	// OscillationWindow is how many trailing corrections count toward
	// oscillation detection.
	OscillationWindow int
	// DeriveMinCorrections is how many agreeing corrections a merchant needs
	// before a learned rule is proposed.
	DeriveMinCorrections int
	// DeriveLookback bounds how far back correction aggregation reaches.
	DeriveLookback time.Duration
	// LearnedRuleConfidence is assigned to newly derived rules.
	LearnedRuleConfidence float64
}

// DefaultConfig returns the standard learning-loop configuration.
func DefaultConfig() Config {
	return Config{
		CanaryAccuracyThreshold: 0.80,
		CanaryMinSampleSize:     5,
		CanaryHoldoutAge:        7 * 24 * time.Hour,
		OscillationWindow:       3,
		DeriveMinCorrections:    3,
		DeriveLookback:          30 * 24 * time.Hour,
		LearnedRuleConfidence:   0.85,
	}
}

// Service runs the learning loop over the storage collaborator. All
// mutations are per-organization; tenant isolation is enforced by scoping
// every query to one org.
type Service struct {
	store service.Store
	now   func() time.Time
	cfg   Config
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a learning-loop service.
func NewService(store service.Store, cfg Config, opts ...Option) *Service {
	s := &Service{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRuleVersion inserts the next version in a lineage. Manual rules are
// active immediately; learned rules start inactive pending a canary.
func (s *Service) CreateRuleVersion(ctx context.Context, orgID string, ruleType model.RuleType, pattern, category string, confidence float64, source model.RuleSource) (*model.RuleVersion, error) {
	if _, err := s.store.GetCategoryBySlug(ctx, category); err != nil {
		if common.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownCategory, category)
		}
		return nil, fmt.Errorf("failed to validate category: %w", err)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	latest, err := tx.GetLatestRuleVersion(ctx, orgID, ruleType, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load lineage: %w", err)
	}

	rule := &model.RuleVersion{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		Type:       ruleType,
		Pattern:    normalizePattern(pattern),
		Category:   category,
		Confidence: confidence,
		Source:     source,
		Version:    1,
		Active:     source == model.RuleSourceManual,
		CreatedAt:  s.now(),
	}
	if latest != nil {
		rule.Version = latest.Version + 1
		rule.ParentID = latest.ID
	}

	// A manual rule activates on creation, so the lineage's prior active
	// version steps down inside the same transaction.
	if rule.Active {
		current, activeErr := tx.GetActiveRuleVersion(ctx, orgID, ruleType, rule.Pattern)
		if activeErr != nil {
			return nil, fmt.Errorf("failed to load active version: %w", activeErr)
		}
		if current != nil {
			if deactivateErr := tx.SetRuleVersionActive(ctx, current.ID, false); deactivateErr != nil {
				return nil, fmt.Errorf("failed to deactivate version %d: %w", current.Version, deactivateErr)
			}
		}
	}

	if err := tx.CreateRuleVersion(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return rule, nil
}

// PromoteRuleVersion activates a rule version. This is a hard precondition:
// promotion without a passing canary for that exact version is an error.
// Promotion is serialized per lineage through a storage transaction.
func (s *Service) PromoteRuleVersion(ctx context.Context, id string) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rule, err := tx.GetRuleVersion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load rule version: %w", err)
	}
	if rule.Active {
		return nil
	}

	canary, err := tx.GetCanaryResult(ctx, id)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to load canary result: %w", err)
	}
	if canary == nil || !canary.Passed || canary.Inconclusive {
		return fmt.Errorf("cannot promote version %d of %s: %w", rule.Version, rule.Pattern, common.ErrCanaryRequired)
	}

	current, err := tx.GetActiveRuleVersion(ctx, rule.OrgID, rule.Type, rule.Pattern)
	if err != nil {
		return fmt.Errorf("failed to load active version: %w", err)
	}
	if current != nil {
		if err := tx.SetRuleVersionActive(ctx, current.ID, false); err != nil {
			return fmt.Errorf("failed to deactivate version %d: %w", current.Version, err)
		}
	}
	if err := tx.SetRuleVersionActive(ctx, rule.ID, true); err != nil {
		return fmt.Errorf("failed to activate version %d: %w", rule.Version, err)
	}
	return tx.Commit()
}

// RollbackRuleVersion deactivates the given version and reactivates its
// immediate parent. Multi-step rollback is repeated single steps.
func (s *Service) RollbackRuleVersion(ctx context.Context, id, note string) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rule, err := tx.GetRuleVersion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load rule version: %w", err)
	}
	if !rule.Active {
		return fmt.Errorf("version %d of %s: %w", rule.Version, rule.Pattern, common.ErrVersionNotActive)
	}
	if rule.ParentID == "" {
		return fmt.Errorf("version %d of %s: %w", rule.Version, rule.Pattern, common.ErrNoParentVersion)
	}

	if err := tx.SetRuleVersionActive(ctx, rule.ID, false); err != nil {
		return fmt.Errorf("failed to deactivate version %d: %w", rule.Version, err)
	}
	if err := tx.SetRuleVersionActive(ctx, rule.ParentID, true); err != nil {
		return fmt.Errorf("failed to reactivate parent of version %d: %w", rule.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// The audit note is secondary; it must never fail the rollback.
	auditLog("rule version rolled back", map[string]any{
		"rule_version_id": rule.ID,
		"lineage":         rule.LineageKey(),
		"version":         rule.Version,
		"note":            note,
	})
	return nil
}

func normalizePattern(pattern string) string {
	return strings.ToLower(strings.TrimSpace(pattern))
}

func isNotFound(err error) bool {
	return err != nil && common.IsNotFound(err)
}
