// Package drift tracks distributional change in categorization output over
// time: periodic snapshots of category shares and confidence statistics,
// compared period over period, raising alerts on significant shifts.
package drift

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
)

// Config holds the drift-detection thresholds.
type Config struct {
	// Period is the snapshot window length.
	Period time.Duration
	// ChangeThreshold is the fractional change (0.10 = 10%) that raises an
	// alert.
	ChangeThreshold float64
	// MinCount is the minimum categorized volume for a period to be
	// comparable; thinner periods are snapshotted but never alerted on.
	MinCount int
}

// DefaultConfig returns the standard drift configuration.
func DefaultConfig() Config {
	return Config{
		Period:          7 * 24 * time.Hour,
		ChangeThreshold: 0.10,
		MinCount:        10,
	}
}

// Detector runs the periodic drift job. It is idempotent: re-running for the
// same day upserts snapshots and never duplicates alerts.
type Detector struct {
	store    service.Store
	notifier service.Notifier
	now      func() time.Time
	cfg      Config
}

// Option configures a Detector.
type Option func(*Detector)

// WithNotifier attaches the alert notification collaborator.
func WithNotifier(n service.Notifier) Option {
	return func(d *Detector) { d.notifier = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a drift detector.
func NewDetector(store service.Store, cfg Config, opts ...Option) *Detector {
	d := &Detector{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run snapshots the period ending at asOf for one organization, compares
// against the prior snapshot, and raises alerts for significant changes.
func (d *Detector) Run(ctx context.Context, orgID string, asOf time.Time) ([]model.DriftAlert, error) {
	date := asOf.Truncate(24 * time.Hour)
	start := asOf.Add(-d.cfg.Period)

	txns, err := d.store.GetTransactions(ctx, orgID, service.TransactionFilter{
		StartDate: &start,
		EndDate:   &asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	categorized := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Category != "" {
			categorized = append(categorized, t)
		}
	}

	if err := d.snapshotDistribution(ctx, orgID, date, categorized); err != nil {
		return nil, err
	}
	if err := d.snapshotConfidence(ctx, orgID, date, categorized); err != nil {
		return nil, err
	}

	if len(categorized) < d.cfg.MinCount {
		slog.Debug("Period too thin for drift comparison",
			"org_id", orgID,
			"count", len(categorized))
		return nil, nil
	}

	prevDate, err := d.store.GetSnapshotDateBefore(ctx, orgID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to find prior snapshot: %w", err)
	}
	if prevDate == nil {
		return nil, nil
	}

	alerts, err := d.compare(ctx, orgID, date, *prevDate)
	if err != nil {
		return nil, err
	}

	for _, alert := range alerts {
		if err := d.store.UpsertDriftAlert(ctx, &alert); err != nil {
			return nil, fmt.Errorf("failed to save alert %s: %w", alert.Metric, err)
		}
		d.notify(ctx, alert)
	}
	return alerts, nil
}

func (d *Detector) snapshotDistribution(ctx context.Context, orgID string, date time.Time, txns []model.Transaction) error {
	counts := make(map[string]int)
	for _, t := range txns {
		counts[t.Category]++
	}
	total := len(txns)

	for category, count := range counts {
		snap := &model.DistributionSnapshot{
			OrgID:    orgID,
			Date:     date,
			Category: category,
			Count:    count,
			Share:    float64(count) / float64(total),
		}
		if err := d.store.UpsertDistributionSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("failed to save distribution snapshot for %s: %w", category, err)
		}
	}
	return nil
}

func (d *Detector) snapshotConfidence(ctx context.Context, orgID string, date time.Time, txns []model.Transaction) error {
	bySource := make(map[model.DecisionSource][]float64)
	for _, t := range txns {
		if t.DecidedBy == "" {
			continue
		}
		bySource[t.DecidedBy] = append(bySource[t.DecidedBy], t.Confidence)
	}

	for source, confidences := range bySource {
		sort.Float64s(confidences)
		snap := &model.ConfidenceSnapshot{
			OrgID:  orgID,
			Date:   date,
			Source: source,
			Count:  len(confidences),
			Mean:   mean(confidences),
			Median: percentile(confidences, 0.50),
			P90:    percentile(confidences, 0.90),
		}
		if err := d.store.UpsertConfidenceSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("failed to save confidence snapshot for %s: %w", source, err)
		}
	}
	return nil
}

// compare diffs the current snapshots against the prior period's and builds
// alerts for metrics whose change clears the threshold.
func (d *Detector) compare(ctx context.Context, orgID string, date, prevDate time.Time) ([]model.DriftAlert, error) {
	var alerts []model.DriftAlert

	current, err := d.store.GetDistributionSnapshots(ctx, orgID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load current snapshots: %w", err)
	}
	previous, err := d.store.GetDistributionSnapshots(ctx, orgID, prevDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior snapshots: %w", err)
	}

	prevShares := make(map[string]float64, len(previous))
	for _, s := range previous {
		prevShares[s.Category] = s.Share
	}
	for _, s := range current {
		prev, ok := prevShares[s.Category]
		if !ok || prev == 0 {
			continue
		}
		if alert := d.buildAlert(orgID, date, "category_share:"+s.Category, s.Share, prev); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	currentConf, err := d.store.GetConfidenceSnapshots(ctx, orgID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load current confidence snapshots: %w", err)
	}
	previousConf, err := d.store.GetConfidenceSnapshots(ctx, orgID, prevDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior confidence snapshots: %w", err)
	}

	prevMeans := make(map[model.DecisionSource]float64, len(previousConf))
	for _, s := range previousConf {
		prevMeans[s.Source] = s.Mean
	}
	for _, s := range currentConf {
		prev, ok := prevMeans[s.Source]
		if !ok || prev == 0 {
			continue
		}
		if alert := d.buildAlert(orgID, date, "confidence_mean:"+string(s.Source), s.Mean, prev); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	return alerts, nil
}

func (d *Detector) buildAlert(orgID string, date time.Time, metric string, current, previous float64) *model.DriftAlert {
	change := (current - previous) / previous
	if math.Abs(change) < d.cfg.ChangeThreshold {
		return nil
	}
	return &model.DriftAlert{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		Metric:     metric,
		Current:    current,
		Previous:   previous,
		PctChange:  change * 100,
		Severity:   severityFor(math.Abs(change)),
		DetectedOn: date,
	}
}

// severityFor tiers an absolute fractional change.
func severityFor(change float64) model.AlertSeverity {
	switch {
	case change >= 0.50:
		return model.SeverityCritical
	case change >= 0.30:
		return model.SeverityHigh
	case change >= 0.20:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// notify hands high and critical alerts to the notification collaborator.
// Delivery failures are logged, never fatal to the detection run.
func (d *Detector) notify(ctx context.Context, alert model.DriftAlert) {
	if d.notifier == nil {
		return
	}
	if alert.Severity != model.SeverityHigh && alert.Severity != model.SeverityCritical {
		return
	}
	if err := d.notifier.NotifyDriftAlert(ctx, alert); err != nil {
		slog.Warn("Failed to deliver drift alert",
			"org_id", alert.OrgID,
			"metric", alert.Metric,
			"error", err)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile over a sorted slice, nearest-rank.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
