package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

// GetCategories returns all active categories ordered by name.
func (q *queries) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, slug, name, description, type, is_active, created_at
		FROM categories
		WHERE is_active = 1
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Slug, &cat.Name, &cat.Description, &cat.Type, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug returns a category by its slug.
func (q *queries) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(slug, "category slug"); err != nil {
		return nil, err
	}

	var cat model.Category
	err := q.db.QueryRowContext(ctx, `
		SELECT id, slug, name, description, type, is_active, created_at
		FROM categories
		WHERE slug = ?`, slug).Scan(
		&cat.ID, &cat.Slug, &cat.Name, &cat.Description, &cat.Type, &cat.IsActive, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", slug, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}

// CreateCategory inserts a new category.
func (q *queries) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(category.Slug, "category slug"); err != nil {
		return err
	}

	result, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (slug, name, description, type, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		category.Slug, category.Name, category.Description, category.Type, category.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create category %s: %w", category.Slug, err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		category.ID = int(id)
	}
	return nil
}
