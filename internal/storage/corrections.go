package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

// SaveCorrection inserts a human correction record.
func (q *queries) SaveCorrection(ctx context.Context, correction *model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(correction.ID, "correction id"); err != nil {
		return err
	}
	if err := validateID(correction.TransactionID, "transaction id"); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO corrections (id, org_id, transaction_id, old_category, new_category, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		correction.ID, correction.OrgID, correction.TransactionID,
		correction.OldCategory, correction.NewCategory, correction.ActorID, correction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

// GetCorrectionsByTransaction returns a transaction's corrections in the
// order they were made.
func (q *queries) GetCorrectionsByTransaction(ctx context.Context, transactionID string) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(transactionID, "transaction id"); err != nil {
		return nil, err
	}

	return q.listCorrections(ctx, `
		SELECT id, org_id, transaction_id, old_category, new_category, actor_id, created_at
		FROM corrections
		WHERE transaction_id = ?
		ORDER BY created_at ASC`, transactionID)
}

// GetCorrectionsSince returns an org's corrections made on or after the
// given time.
func (q *queries) GetCorrectionsSince(ctx context.Context, orgID string, since time.Time) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return q.listCorrections(ctx, `
		SELECT id, org_id, transaction_id, old_category, new_category, actor_id, created_at
		FROM corrections
		WHERE org_id = ? AND created_at >= ?
		ORDER BY created_at ASC`, orgID, since)
}

func (q *queries) listCorrections(ctx context.Context, query string, args ...any) ([]model.Correction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.Correction
	for rows.Next() {
		var c model.Correction
		if err := rows.Scan(&c.ID, &c.OrgID, &c.TransactionID, &c.OldCategory,
			&c.NewCategory, &c.ActorID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrections: %w", err)
	}
	return corrections, nil
}

// GetOscillation returns the oscillation record for a transaction.
func (q *queries) GetOscillation(ctx context.Context, transactionID string) (*model.Oscillation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(transactionID, "transaction id"); err != nil {
		return nil, err
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, org_id, entries, count, resolved, final_category, first_seen, last_seen
		FROM oscillations
		WHERE transaction_id = ?`, transactionID)
	osc, err := scanOscillation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("oscillation for transaction %s: %w", transactionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query oscillation: %w", err)
	}
	return osc, nil
}

// UpsertOscillation inserts or replaces the oscillation record for a
// transaction. One record per transaction; repeated detections update it.
func (q *queries) UpsertOscillation(ctx context.Context, oscillation *model.Oscillation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(oscillation.ID, "oscillation id"); err != nil {
		return err
	}

	entries, err := json.Marshal(oscillation.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode oscillation entries: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO oscillations (id, transaction_id, org_id, entries, count, resolved, final_category, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			entries = excluded.entries,
			count = excluded.count,
			resolved = excluded.resolved,
			final_category = excluded.final_category,
			last_seen = excluded.last_seen`,
		oscillation.ID, oscillation.TransactionID, oscillation.OrgID, string(entries),
		oscillation.Count, oscillation.Resolved, oscillation.FinalCategory,
		oscillation.FirstSeen, oscillation.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to save oscillation: %w", err)
	}
	return nil
}

// ListUnresolvedOscillations returns an org's open oscillations, most
// recently active first.
func (q *queries) ListUnresolvedOscillations(ctx context.Context, orgID string) ([]model.Oscillation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, transaction_id, org_id, entries, count, resolved, final_category, first_seen, last_seen
		FROM oscillations
		WHERE org_id = ? AND resolved = 0
		ORDER BY last_seen DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query oscillations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var oscillations []model.Oscillation
	for rows.Next() {
		osc, scanErr := scanOscillation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan oscillation: %w", scanErr)
		}
		oscillations = append(oscillations, *osc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating oscillations: %w", err)
	}
	return oscillations, nil
}

func scanOscillation(row rowScanner) (*model.Oscillation, error) {
	var osc model.Oscillation
	var entries string
	err := row.Scan(&osc.ID, &osc.TransactionID, &osc.OrgID, &entries, &osc.Count,
		&osc.Resolved, &osc.FinalCategory, &osc.FirstSeen, &osc.LastSeen)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entries), &osc.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode oscillation entries: %w", err)
	}
	return &osc, nil
}
