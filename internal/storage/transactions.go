package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/service"
)

const transactionColumns = `id, org_id, hash, date, description, merchant_name, mcc,
	currency, amount_cents, category, confidence, needs_review, source, decided_by, raw_payload`

// SaveTransactions inserts transactions, skipping duplicates by hash.
func (q *queries) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(hash) DO NOTHING`,
			txn.ID, txn.OrgID, txn.Hash, txn.Date, txn.Description, txn.MerchantName,
			txn.MCC, txn.Currency, txn.AmountCents, txn.Category, txn.Confidence,
			txn.NeedsReview, txn.Source, txn.DecidedBy, txn.RawPayload)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}
	return nil
}

// GetTransactionByID returns one transaction.
func (q *queries) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "transaction id"); err != nil {
		return nil, err
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// GetTransactionsToCategorize returns uncategorized transactions for an org,
// oldest first.
func (q *queries) GetTransactionsToCategorize(ctx context.Context, orgID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE org_id = ? AND category = ''
		ORDER BY date ASC
		LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// GetTransactions returns transactions for an org matching a filter.
func (q *queries) GetTransactions(ctx context.Context, orgID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var conditions []string
	args := []any{orgID}
	conditions = append(conditions, "org_id = ?")

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY date ASC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// UpdateTransactionCategory sets a transaction's category, confidence,
// review flag, and decision source.
func (q *queries) UpdateTransactionCategory(ctx context.Context, id, category string, confidence float64, needsReview bool, source model.DecisionSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "transaction id"); err != nil {
		return err
	}

	result, err := q.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, confidence = ?, needs_review = ?, decided_by = ?
		WHERE id = ?`,
		category, confidence, needsReview, source, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var merchant, mcc, raw sql.NullString
	err := row.Scan(&txn.ID, &txn.OrgID, &txn.Hash, &txn.Date, &txn.Description,
		&merchant, &mcc, &txn.Currency, &txn.AmountCents, &txn.Category,
		&txn.Confidence, &txn.NeedsReview, &txn.Source, &txn.DecidedBy, &raw)
	if err != nil {
		return nil, err
	}
	txn.MerchantName = merchant.String
	txn.MCC = mcc.String
	txn.RawPayload = raw.String
	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}
