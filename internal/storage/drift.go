package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

const snapshotDateLayout = "2006-01-02"

// UpsertDistributionSnapshot records one category's share for a snapshot
// date, replacing any prior value for the same (org, date, category).
func (q *queries) UpsertDistributionSnapshot(ctx context.Context, snapshot *model.DistributionSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO distribution_snapshots (org_id, date, category, count, share)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(org_id, date, category) DO UPDATE SET
			count = excluded.count,
			share = excluded.share`,
		snapshot.OrgID, snapshot.Date.Format(snapshotDateLayout),
		snapshot.Category, snapshot.Count, snapshot.Share)
	if err != nil {
		return fmt.Errorf("failed to save distribution snapshot: %w", err)
	}
	return nil
}

// UpsertConfidenceSnapshot records confidence statistics for one decision
// source on a snapshot date.
func (q *queries) UpsertConfidenceSnapshot(ctx context.Context, snapshot *model.ConfidenceSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO confidence_snapshots (org_id, date, source, count, mean, median, p90)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, date, source) DO UPDATE SET
			count = excluded.count,
			mean = excluded.mean,
			median = excluded.median,
			p90 = excluded.p90`,
		snapshot.OrgID, snapshot.Date.Format(snapshotDateLayout), snapshot.Source,
		snapshot.Count, snapshot.Mean, snapshot.Median, snapshot.P90)
	if err != nil {
		return fmt.Errorf("failed to save confidence snapshot: %w", err)
	}
	return nil
}

// GetDistributionSnapshots returns all category shares for an org on one
// snapshot date.
func (q *queries) GetDistributionSnapshots(ctx context.Context, orgID string, date time.Time) ([]model.DistributionSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT org_id, date, category, count, share
		FROM distribution_snapshots
		WHERE org_id = ? AND date = ?
		ORDER BY category`, orgID, date.Format(snapshotDateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []model.DistributionSnapshot
	for rows.Next() {
		var s model.DistributionSnapshot
		if err := rows.Scan(&s.OrgID, &s.Date, &s.Category, &s.Count, &s.Share); err != nil {
			return nil, fmt.Errorf("failed to scan distribution snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution snapshots: %w", err)
	}
	return snapshots, nil
}

// GetConfidenceSnapshots returns per-source confidence statistics for an
// org on one snapshot date.
func (q *queries) GetConfidenceSnapshots(ctx context.Context, orgID string, date time.Time) ([]model.ConfidenceSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT org_id, date, source, count, mean, median, p90
		FROM confidence_snapshots
		WHERE org_id = ? AND date = ?
		ORDER BY source`, orgID, date.Format(snapshotDateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query confidence snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []model.ConfidenceSnapshot
	for rows.Next() {
		var s model.ConfidenceSnapshot
		if err := rows.Scan(&s.OrgID, &s.Date, &s.Source, &s.Count, &s.Mean, &s.Median, &s.P90); err != nil {
			return nil, fmt.Errorf("failed to scan confidence snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating confidence snapshots: %w", err)
	}
	return snapshots, nil
}

// GetSnapshotDateBefore returns the most recent snapshot date strictly
// before the given time, or nil when no earlier snapshot exists.
func (q *queries) GetSnapshotDateBefore(ctx context.Context, orgID string, before time.Time) (*time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var day sql.NullString
	err := q.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM (
			SELECT date FROM distribution_snapshots WHERE org_id = ? AND date < ?
			UNION
			SELECT date FROM confidence_snapshots WHERE org_id = ? AND date < ?
		)`, orgID, before.Format(snapshotDateLayout), orgID, before.Format(snapshotDateLayout)).Scan(&day)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot dates: %w", err)
	}
	if !day.Valid {
		return nil, nil
	}

	date, err := time.Parse(snapshotDateLayout, day.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot date: %w", err)
	}
	return &date, nil
}

// UpsertDriftAlert records a drift alert. Re-detecting the same
// (org, metric, date) updates the magnitude fields but preserves the
// original id and acknowledgement state.
func (q *queries) UpsertDriftAlert(ctx context.Context, alert *model.DriftAlert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(alert.ID, "drift alert id"); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO drift_alerts (id, org_id, metric, detected_on, current, previous, pct_change, severity, acknowledged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, metric, detected_on) DO UPDATE SET
			current = excluded.current,
			previous = excluded.previous,
			pct_change = excluded.pct_change,
			severity = excluded.severity`,
		alert.ID, alert.OrgID, alert.Metric, alert.DetectedOn.Format(snapshotDateLayout),
		alert.Current, alert.Previous, alert.PctChange, alert.Severity, alert.Acknowledged)
	if err != nil {
		return fmt.Errorf("failed to save drift alert: %w", err)
	}
	return nil
}

// ListDriftAlerts returns an org's drift alerts, newest first.
func (q *queries) ListDriftAlerts(ctx context.Context, orgID string, unacknowledgedOnly bool) ([]model.DriftAlert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, org_id, metric, detected_on, current, previous, pct_change, severity, acknowledged
		FROM drift_alerts
		WHERE org_id = ?`
	if unacknowledgedOnly {
		query += ` AND acknowledged = 0`
	}
	query += ` ORDER BY detected_on DESC, metric`

	rows, err := q.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drift alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.DriftAlert
	for rows.Next() {
		var a model.DriftAlert
		// detected_on is declared DATE, so the driver hands back a time.Time.
		if err := rows.Scan(&a.ID, &a.OrgID, &a.Metric, &a.DetectedOn, &a.Current, &a.Previous,
			&a.PctChange, &a.Severity, &a.Acknowledged); err != nil {
			return nil, fmt.Errorf("failed to scan drift alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drift alerts: %w", err)
	}
	return alerts, nil
}

// AcknowledgeDriftAlert marks an alert acknowledged.
func (q *queries) AcknowledgeDriftAlert(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "drift alert id"); err != nil {
		return err
	}

	result, err := q.db.ExecContext(ctx, `
		UPDATE drift_alerts SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge drift alert %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("drift alert %s: %w", id, common.ErrNotFound)
	}
	return nil
}
