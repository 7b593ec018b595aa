// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Limit     int
	Offset    int
}

// Store defines the contract for the persistence collaborator. The engine
// never assumes a specific query language, only these operations.
type Store interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsToCategorize(ctx context.Context, orgID string, limit int) ([]model.Transaction, error)
	GetTransactions(ctx context.Context, orgID string, filter TransactionFilter) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, category string, confidence float64, needsReview bool, source model.DecisionSource) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error

	// Rule version operations
	CreateRuleVersion(ctx context.Context, rule *model.RuleVersion) error
	GetRuleVersion(ctx context.Context, id string) (*model.RuleVersion, error)
	GetLatestRuleVersion(ctx context.Context, orgID string, ruleType model.RuleType, pattern string) (*model.RuleVersion, error)
	GetActiveRuleVersion(ctx context.Context, orgID string, ruleType model.RuleType, pattern string) (*model.RuleVersion, error)
	GetActiveRuleVersions(ctx context.Context, orgID string) ([]model.RuleVersion, error)
	ListRuleVersions(ctx context.Context, orgID string) ([]model.RuleVersion, error)
	SetRuleVersionActive(ctx context.Context, id string, active bool) error

	// Canary results
	SaveCanaryResult(ctx context.Context, result *model.CanaryTestResult) error
	GetCanaryResult(ctx context.Context, ruleVersionID string) (*model.CanaryTestResult, error)

	// Corrections and oscillations
	SaveCorrection(ctx context.Context, correction *model.Correction) error
	GetCorrectionsByTransaction(ctx context.Context, transactionID string) ([]model.Correction, error)
	GetCorrectionsSince(ctx context.Context, orgID string, since time.Time) ([]model.Correction, error)
	GetOscillation(ctx context.Context, transactionID string) (*model.Oscillation, error)
	UpsertOscillation(ctx context.Context, oscillation *model.Oscillation) error
	ListUnresolvedOscillations(ctx context.Context, orgID string) ([]model.Oscillation, error)

	// Rule effectiveness
	UpsertRuleEffectiveness(ctx context.Context, eff *model.RuleEffectiveness) error

	// Drift snapshots and alerts; upsert semantics keyed by (org, date, metric)
	UpsertDistributionSnapshot(ctx context.Context, snapshot *model.DistributionSnapshot) error
	UpsertConfidenceSnapshot(ctx context.Context, snapshot *model.ConfidenceSnapshot) error
	GetDistributionSnapshots(ctx context.Context, orgID string, date time.Time) ([]model.DistributionSnapshot, error)
	GetConfidenceSnapshots(ctx context.Context, orgID string, date time.Time) ([]model.ConfidenceSnapshot, error)
	GetSnapshotDateBefore(ctx context.Context, orgID string, before time.Time) (*time.Time, error)
	UpsertDriftAlert(ctx context.Context, alert *model.DriftAlert) error
	ListDriftAlerts(ctx context.Context, orgID string, unacknowledgedOnly bool) ([]model.DriftAlert, error)
	AcknowledgeDriftAlert(ctx context.Context, id string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx represents a storage transaction. Rule promotion and rollback are
// serialized per lineage through a single Tx.
type Tx interface {
	Commit() error
	Rollback() error
	Store
}

// Notifier delivers drift alerts to organization admins. The engine's
// responsibility ends at producing the alert record.
type Notifier interface {
	NotifyDriftAlert(ctx context.Context, alert model.DriftAlert) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
