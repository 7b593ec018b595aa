package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/signal"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Transactions and categories",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					org_id TEXT NOT NULL,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					merchant_name TEXT,
					mcc TEXT,
					currency TEXT NOT NULL DEFAULT 'USD',
					amount_cents INTEGER NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					needs_review INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL DEFAULT 'IMPORT',
					decided_by TEXT NOT NULL DEFAULT '',
					raw_payload TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_org_date ON transactions(org_id, date)`,
				`CREATE INDEX idx_transactions_org_category ON transactions(org_id, category)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					slug TEXT UNIQUE NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Rule versions and canary results",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS rule_versions (
					id TEXT PRIMARY KEY,
					org_id TEXT NOT NULL,
					rule_type TEXT NOT NULL,
					pattern TEXT NOT NULL,
					category TEXT NOT NULL,
					confidence REAL NOT NULL,
					source TEXT NOT NULL,
					parent_id TEXT NOT NULL DEFAULT '',
					version INTEGER NOT NULL,
					active INTEGER NOT NULL DEFAULT 0,
					deactivated_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(org_id, rule_type, pattern, version)
				)`,
				`CREATE INDEX idx_rule_versions_lineage ON rule_versions(org_id, rule_type, pattern)`,
				`CREATE INDEX idx_rule_versions_active ON rule_versions(org_id, active)`,

				`CREATE TABLE IF NOT EXISTS canary_results (
					id TEXT PRIMARY KEY,
					rule_version_id TEXT NOT NULL,
					org_id TEXT NOT NULL,
					sample_size INTEGER NOT NULL,
					correct INTEGER NOT NULL,
					accuracy REAL NOT NULL,
					threshold REAL NOT NULL,
					passed INTEGER NOT NULL,
					inconclusive INTEGER NOT NULL DEFAULT 0,
					tested_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_canary_results_rule ON canary_results(rule_version_id)`,

				`CREATE TABLE IF NOT EXISTS rule_effectiveness (
					rule_version_id TEXT NOT NULL,
					org_id TEXT NOT NULL,
					computed_on DATE NOT NULL,
					applications INTEGER NOT NULL,
					corrected_away INTEGER NOT NULL,
					precision_rate REAL NOT NULL,
					PRIMARY KEY (rule_version_id, computed_on)
				)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     3,
		Description: "Corrections and oscillations",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS corrections (
					id TEXT PRIMARY KEY,
					org_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					old_category TEXT NOT NULL,
					new_category TEXT NOT NULL,
					actor_id TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_corrections_transaction ON corrections(transaction_id, created_at)`,
				`CREATE INDEX idx_corrections_org_created ON corrections(org_id, created_at)`,

				`CREATE TABLE IF NOT EXISTS oscillations (
					id TEXT PRIMARY KEY,
					transaction_id TEXT UNIQUE NOT NULL,
					org_id TEXT NOT NULL,
					entries TEXT NOT NULL,
					count INTEGER NOT NULL,
					resolved INTEGER NOT NULL DEFAULT 0,
					final_category TEXT NOT NULL DEFAULT '',
					first_seen DATETIME NOT NULL,
					last_seen DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_oscillations_org_resolved ON oscillations(org_id, resolved)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     4,
		Description: "Drift snapshots and alerts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS distribution_snapshots (
					org_id TEXT NOT NULL,
					date DATE NOT NULL,
					category TEXT NOT NULL,
					count INTEGER NOT NULL,
					share REAL NOT NULL,
					PRIMARY KEY (org_id, date, category)
				)`,
				`CREATE TABLE IF NOT EXISTS confidence_snapshots (
					org_id TEXT NOT NULL,
					date DATE NOT NULL,
					source TEXT NOT NULL,
					count INTEGER NOT NULL,
					mean REAL NOT NULL,
					median REAL NOT NULL,
					p90 REAL NOT NULL,
					PRIMARY KEY (org_id, date, source)
				)`,
				`CREATE TABLE IF NOT EXISTS drift_alerts (
					id TEXT PRIMARY KEY,
					org_id TEXT NOT NULL,
					metric TEXT NOT NULL,
					detected_on DATE NOT NULL,
					current REAL NOT NULL,
					previous REAL NOT NULL,
					pct_change REAL NOT NULL,
					severity TEXT NOT NULL,
					acknowledged INTEGER NOT NULL DEFAULT 0,
					UNIQUE(org_id, metric, detected_on)
				)`,
			}
			return execAll(tx, queries)
		},
	},
}

func execAll(tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies pending schema migrations and seeds default categories.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, txErr := s.sqlDB.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, txErr)
		}

		if upErr := m.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, upErr)
		}
		if _, recErr := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); recErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, recErr)
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, commitErr)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	return s.seedCategories(ctx)
}

// seedCategories inserts the default category set, ignoring existing slugs.
func (s *SQLiteStore) seedCategories(ctx context.Context) error {
	for _, cat := range signal.DefaultCategories() {
		_, err := s.sqlDB.ExecContext(ctx, `
			INSERT INTO categories (slug, name, description, type, is_active)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(slug) DO NOTHING`,
			cat.Slug, cat.Name, cat.Description, cat.Type, cat.IsActive)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", cat.Slug, err)
		}
	}
	return nil
}
