package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

const ruleColumns = `id, org_id, rule_type, pattern, category, confidence, source,
	parent_id, version, active, deactivated_at, created_at`

// CreateRuleVersion inserts a rule version.
func (q *queries) CreateRuleVersion(ctx context.Context, rule *model.RuleVersion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(rule.ID, "rule version id"); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO rule_versions (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.OrgID, rule.Type, rule.Pattern, rule.Category, rule.Confidence,
		rule.Source, rule.ParentID, rule.Version, rule.Active, rule.DeactivatedAt, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule version: %w", err)
	}
	return nil
}

// GetRuleVersion returns one rule version by id.
func (q *queries) GetRuleVersion(ctx context.Context, id string) (*model.RuleVersion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "rule version id"); err != nil {
		return nil, err
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM rule_versions WHERE id = ?`, id)
	rule, err := scanRuleVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule version %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rule version: %w", err)
	}
	return rule, nil
}

// GetLatestRuleVersion returns the highest version in a lineage, or nil when
// the lineage is empty.
func (q *queries) GetLatestRuleVersion(ctx context.Context, orgID string, ruleType model.RuleType, pattern string) (*model.RuleVersion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM rule_versions
		WHERE org_id = ? AND rule_type = ? AND pattern = ?
		ORDER BY version DESC LIMIT 1`, orgID, ruleType, pattern)
	rule, err := scanRuleVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest rule version: %w", err)
	}
	return rule, nil
}

// GetActiveRuleVersion returns the single active version in a lineage, or
// nil when no version is active.
func (q *queries) GetActiveRuleVersion(ctx context.Context, orgID string, ruleType model.RuleType, pattern string) (*model.RuleVersion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM rule_versions
		WHERE org_id = ? AND rule_type = ? AND pattern = ? AND active = 1
		LIMIT 1`, orgID, ruleType, pattern)
	rule, err := scanRuleVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active rule version: %w", err)
	}
	return rule, nil
}

// GetActiveRuleVersions returns every active rule version for an org.
func (q *queries) GetActiveRuleVersions(ctx context.Context, orgID string) ([]model.RuleVersion, error) {
	return q.listRuleVersions(ctx, `
		SELECT `+ruleColumns+` FROM rule_versions
		WHERE org_id = ? AND active = 1
		ORDER BY rule_type, pattern`, orgID)
}

// ListRuleVersions returns every rule version for an org, lineage-ordered.
func (q *queries) ListRuleVersions(ctx context.Context, orgID string) ([]model.RuleVersion, error) {
	return q.listRuleVersions(ctx, `
		SELECT `+ruleColumns+` FROM rule_versions
		WHERE org_id = ?
		ORDER BY rule_type, pattern, version`, orgID)
}

func (q *queries) listRuleVersions(ctx context.Context, query string, args ...any) ([]model.RuleVersion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.RuleVersion
	for rows.Next() {
		rule, scanErr := scanRuleVersion(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule version: %w", scanErr)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule versions: %w", err)
	}
	return rules, nil
}

// SetRuleVersionActive flips a version's active flag, recording deactivation
// time when turning it off.
func (q *queries) SetRuleVersionActive(ctx context.Context, id string, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "rule version id"); err != nil {
		return err
	}

	var result sql.Result
	var err error
	if active {
		result, err = q.db.ExecContext(ctx, `
			UPDATE rule_versions SET active = 1, deactivated_at = NULL WHERE id = ?`, id)
	} else {
		result, err = q.db.ExecContext(ctx, `
			UPDATE rule_versions SET active = 0, deactivated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule version %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule version %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// SaveCanaryResult inserts a canary evaluation.
func (q *queries) SaveCanaryResult(ctx context.Context, result *model.CanaryTestResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(result.ID, "canary result id"); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO canary_results
			(id, rule_version_id, org_id, sample_size, correct, accuracy, threshold, passed, inconclusive, tested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.RuleVersionID, result.OrgID, result.SampleSize, result.Correct,
		result.Accuracy, result.Threshold, result.Passed, result.Inconclusive, result.TestedAt)
	if err != nil {
		return fmt.Errorf("failed to save canary result: %w", err)
	}
	return nil
}

// GetCanaryResult returns the most recent canary evaluation for a rule
// version.
func (q *queries) GetCanaryResult(ctx context.Context, ruleVersionID string) (*model.CanaryTestResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(ruleVersionID, "rule version id"); err != nil {
		return nil, err
	}

	var r model.CanaryTestResult
	err := q.db.QueryRowContext(ctx, `
		SELECT id, rule_version_id, org_id, sample_size, correct, accuracy, threshold, passed, inconclusive, tested_at
		FROM canary_results
		WHERE rule_version_id = ?
		ORDER BY tested_at DESC LIMIT 1`, ruleVersionID).Scan(
		&r.ID, &r.RuleVersionID, &r.OrgID, &r.SampleSize, &r.Correct,
		&r.Accuracy, &r.Threshold, &r.Passed, &r.Inconclusive, &r.TestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("canary for rule version %s: %w", ruleVersionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query canary result: %w", err)
	}
	return &r, nil
}

// UpsertRuleEffectiveness records an effectiveness sample keyed by
// (rule version, computed date).
func (q *queries) UpsertRuleEffectiveness(ctx context.Context, eff *model.RuleEffectiveness) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO rule_effectiveness
			(rule_version_id, org_id, computed_on, applications, corrected_away, precision_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_version_id, computed_on) DO UPDATE SET
			applications = excluded.applications,
			corrected_away = excluded.corrected_away,
			precision_rate = excluded.precision_rate`,
		eff.RuleVersionID, eff.OrgID, eff.ComputedOn.Format("2006-01-02"),
		eff.Applications, eff.CorrectedAway, eff.Precision)
	if err != nil {
		return fmt.Errorf("failed to save rule effectiveness: %w", err)
	}
	return nil
}

func scanRuleVersion(row rowScanner) (*model.RuleVersion, error) {
	var rule model.RuleVersion
	var deactivated sql.NullTime
	err := row.Scan(&rule.ID, &rule.OrgID, &rule.Type, &rule.Pattern, &rule.Category,
		&rule.Confidence, &rule.Source, &rule.ParentID, &rule.Version, &rule.Active,
		&deactivated, &rule.CreatedAt)
	if err != nil {
		return nil, err
	}
	if deactivated.Valid {
		rule.DeactivatedAt = &deactivated.Time
	}
	return &rule, nil
}
