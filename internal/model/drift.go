package model

import "time"

// DecisionSource indicates which path produced a transaction's category.
type DecisionSource string

// Decision source constants.
const (
	DecisionRule  DecisionSource = "rule"
	DecisionModel DecisionSource = "model"
	DecisionHuman DecisionSource = "manual"
)

// DistributionSnapshot is one category's share of an organization's volume
// for a snapshot period. Snapshots form an append-only time series keyed by
// (org, date, category).
type DistributionSnapshot struct {
	Date     time.Time
	OrgID    string
	Category string
	Count    int
	Share    float64
}

// ConfidenceSnapshot aggregates confidence statistics per decision source
// for a snapshot period, keyed by (org, date, source).
type ConfidenceSnapshot struct {
	Date   time.Time
	OrgID  string
	Source DecisionSource
	Count  int
	Mean   float64
	Median float64
	P90    float64
}

// AlertSeverity tiers a drift alert by magnitude of change.
type AlertSeverity string

// Alert severity constants.
const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// DriftAlert records a statistically significant change in a tracked metric
// between consecutive snapshots. Alerts are idempotent per
// (org, metric, detection date).
type DriftAlert struct {
	DetectedOn   time.Time
	ID           string
	OrgID        string
	Metric       string
	Severity     AlertSeverity
	Current      float64
	Previous     float64
	PctChange    float64
	Acknowledged bool
}
