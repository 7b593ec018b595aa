package model

import "time"

// CategoryType indicates whether a category is for income, expense, or system use.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeSystem represents system-managed categories (e.g., transfers, clearing).
	CategoryTypeSystem CategoryType = "system"
)

// CategoryMiscellaneous is the fallback slug for unrecognized model output.
const CategoryMiscellaneous = "miscellaneous"

// CategoryPayoutsClearing holds payment-processor payouts awaiting settlement.
const CategoryPayoutsClearing = "payouts_clearing"

// Category represents a valid accounting category.
type Category struct {
	CreatedAt   time.Time
	Slug        string
	Name        string
	Description string
	Type        CategoryType
	ID          int
	IsActive    bool
}

// CategorySet provides slug lookup over a fixed category list.
type CategorySet struct {
	bySlug map[string]Category
	all    []Category
}

// NewCategorySet builds a lookup set from a category list.
func NewCategorySet(categories []Category) *CategorySet {
	bySlug := make(map[string]Category, len(categories))
	for _, c := range categories {
		bySlug[c.Slug] = c
	}
	return &CategorySet{bySlug: bySlug, all: categories}
}

// Get returns the category for a slug, if known.
func (s *CategorySet) Get(slug string) (Category, bool) {
	c, ok := s.bySlug[slug]
	return c, ok
}

// Contains reports whether the slug names a known category.
func (s *CategorySet) Contains(slug string) bool {
	_, ok := s.bySlug[slug]
	return ok
}

// All returns every category in the set.
func (s *CategorySet) All() []Category {
	return s.all
}

// Slugs returns the slug of every category in the set.
func (s *CategorySet) Slugs() []string {
	slugs := make([]string, len(s.all))
	for i, c := range s.all {
		slugs[i] = c.Slug
	}
	return slugs
}
