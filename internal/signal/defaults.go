package signal

import "github.com/ledgerline/ledgerline/internal/model"

// DefaultTables returns the compiled-in starter rule tables. Organizations
// extend these through the learning loop; defaults are never mutated.
func DefaultTables() Tables {
	return Tables{
		MCC:      defaultMCCTable(),
		Vendors:  defaultVendorPatterns(),
		Keywords: defaultKeywordRules(),
	}
}

func defaultMCCTable() MCCTable {
	return MCCTable{
		// Food and dining
		"5811": {Category: "meals", Strength: model.StrengthExact, Confidence: 0.90},
		"5812": {Category: "meals", Strength: model.StrengthExact, Confidence: 0.92},
		"5813": {Category: "meals", Strength: model.StrengthExact, Confidence: 0.88},
		"5814": {Category: "meals", Strength: model.StrengthExact, Confidence: 0.92},
		"5411": {Category: "groceries", Strength: model.StrengthExact, Confidence: 0.90},
		"5499": {Category: "groceries", Strength: model.StrengthStrong, Confidence: 0.75},

		// Travel and transport
		"4111": {Category: "travel_transport", Strength: model.StrengthExact, Confidence: 0.90},
		"4121": {Category: "travel_transport", Strength: model.StrengthExact, Confidence: 0.90},
		"4511": {Category: "travel_transport", Strength: model.StrengthExact, Confidence: 0.92},
		"7011": {Category: "travel_transport", Strength: model.StrengthExact, Confidence: 0.88},
		"5541": {Category: "fuel", Strength: model.StrengthExact, Confidence: 0.90},
		"5542": {Category: "fuel", Strength: model.StrengthExact, Confidence: 0.90},

		// Office and operations
		"5111": {Category: "office_supplies", Strength: model.StrengthExact, Confidence: 0.88},
		"5943": {Category: "office_supplies", Strength: model.StrengthExact, Confidence: 0.88},
		"5734": {Category: "software_subscriptions", Strength: model.StrengthExact, Confidence: 0.88},
		"7372": {Category: "software_subscriptions", Strength: model.StrengthExact, Confidence: 0.88},
		"4814": {Category: "utilities", Strength: model.StrengthExact, Confidence: 0.88},
		"4900": {Category: "utilities", Strength: model.StrengthExact, Confidence: 0.90},

		// Services
		"8111": {Category: "professional_services", Strength: model.StrengthExact, Confidence: 0.88},
		"8931": {Category: "professional_services", Strength: model.StrengthExact, Confidence: 0.90},
		"6300": {Category: "insurance", Strength: model.StrengthExact, Confidence: 0.90},
		"7230": {Category: "personal_care", Strength: model.StrengthExact, Confidence: 0.88},
		"6012": {Category: "bank_fees", Strength: model.StrengthStrong, Confidence: 0.70},
	}
}

func defaultVendorPatterns() []VendorPattern {
	return []VendorPattern{
		{Pattern: "starbucks", Kind: VendorSubstring, Category: "meals", Confidence: 0.90, Priority: 80},
		{Pattern: "chipotle", Kind: VendorSubstring, Category: "meals", Confidence: 0.90, Priority: 80},
		{Pattern: "doordash", Kind: VendorPrefix, Category: "meals", Confidence: 0.85, Priority: 75},
		{Pattern: "uber eats", Kind: VendorSubstring, Category: "meals", Confidence: 0.85, Priority: 78},
		{Pattern: "uber", Kind: VendorPrefix, Category: "travel_transport", Confidence: 0.80, Priority: 60},
		{Pattern: "lyft", Kind: VendorPrefix, Category: "travel_transport", Confidence: 0.85, Priority: 70},
		{Pattern: "delta air", Kind: VendorSubstring, Category: "travel_transport", Confidence: 0.90, Priority: 75},
		{Pattern: "united airlines", Kind: VendorSubstring, Category: "travel_transport", Confidence: 0.90, Priority: 75},
		{Pattern: "shell", Kind: VendorExact, Category: "fuel", Confidence: 0.88, Priority: 70},
		{Pattern: "chevron", Kind: VendorPrefix, Category: "fuel", Confidence: 0.88, Priority: 70},
		{Pattern: "whole foods", Kind: VendorSubstring, Category: "groceries", Confidence: 0.90, Priority: 75},
		{Pattern: "trader joe", Kind: VendorSubstring, Category: "groceries", Confidence: 0.90, Priority: 75},
		{Pattern: "safeway", Kind: VendorPrefix, Category: "groceries", Confidence: 0.88, Priority: 70},
		{Pattern: "costco", Kind: VendorPrefix, Category: "groceries", Confidence: 0.75, Priority: 60},
		{Pattern: "staples", Kind: VendorPrefix, Category: "office_supplies", Confidence: 0.85, Priority: 70},
		{Pattern: "office depot", Kind: VendorSubstring, Category: "office_supplies", Confidence: 0.88, Priority: 70},
		{Pattern: "github", Kind: VendorSubstring, Category: "software_subscriptions", Confidence: 0.92, Priority: 80},
		{Pattern: "atlassian", Kind: VendorSubstring, Category: "software_subscriptions", Confidence: 0.92, Priority: 80},
		{Pattern: "slack", Kind: VendorPrefix, Category: "software_subscriptions", Confidence: 0.88, Priority: 75},
		{Pattern: "zoom.us", Kind: VendorSubstring, Category: "software_subscriptions", Confidence: 0.90, Priority: 78},
		{Pattern: `(?i)\baws\b|amazon web services`, Kind: VendorRegex, Category: "software_subscriptions", Confidence: 0.90, Priority: 78},
		{Pattern: "geico", Kind: VendorPrefix, Category: "insurance", Confidence: 0.90, Priority: 75},
		{Pattern: "state farm", Kind: VendorSubstring, Category: "insurance", Confidence: 0.90, Priority: 75},
		{Pattern: "comcast", Kind: VendorPrefix, Category: "utilities", Confidence: 0.88, Priority: 70},
		{Pattern: "verizon", Kind: VendorPrefix, Category: "utilities", Confidence: 0.85, Priority: 68},
	}
}

func defaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Name:       "rent",
			Category:   "rent",
			Keywords:   []string{"rent", "lease"},
			Excludes:   []string{"vehicle", "car", "truck", "equipment"},
			Confidence: 0.70,
		},
		{
			Name:       "payroll",
			Category:   "payroll",
			Keywords:   []string{"payroll", "gusto", "adp", "salary"},
			Confidence: 0.75,
		},
		{
			Name:       "software",
			Category:   "software_subscriptions",
			Keywords:   []string{"subscription", "saas", "license"},
			Confidence: 0.60,
		},
		{
			Name:       "insurance",
			Category:   "insurance",
			Keywords:   []string{"insurance", "premium", "policy"},
			Confidence: 0.65,
		},
		{
			Name:       "utilities",
			Category:   "utilities",
			Keywords:   []string{"electric", "water", "gas bill", "internet"},
			Confidence: 0.60,
		},
		{
			Name:       "meals",
			Category:   "meals",
			Keywords:   []string{"restaurant", "cafe", "coffee", "lunch", "dinner"},
			Confidence: 0.55,
		},
		{
			Name:       "professional services",
			Category:   "professional_services",
			Keywords:   []string{"consulting", "legal", "accounting", "attorney"},
			Confidence: 0.65,
		},
		{
			Name:       "bank fees",
			Category:   "bank_fees",
			Keywords:   []string{"overdraft", "service charge", "wire fee", "fee"},
			Confidence: 0.55,
		},
		{
			Name:       "transfers",
			Category:   "transfers",
			Keywords:   []string{"bank transfer", "wire transfer", "ach transfer"},
			Confidence: 0.60,
		},
		{
			Name:       "interest income",
			Category:   "interest_income",
			Keywords:   []string{"interest earned", "interest paid", "dividend"},
			Confidence: 0.65,
		},
	}
}

// DefaultCategories returns the compiled-in category set created by the
// initial migration.
func DefaultCategories() []model.Category {
	return []model.Category{
		{Slug: "meals", Name: "Meals", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "groceries", Name: "Groceries", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "travel_transport", Name: "Travel & Transport", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "fuel", Name: "Fuel", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "office_supplies", Name: "Office Supplies", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "software_subscriptions", Name: "Software & Subscriptions", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "rent", Name: "Rent", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "utilities", Name: "Utilities", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "insurance", Name: "Insurance", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "payroll", Name: "Payroll", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "professional_services", Name: "Professional Services", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "personal_care", Name: "Personal Care", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "bank_fees", Name: "Bank Fees", Type: model.CategoryTypeExpense, IsActive: true},
		{Slug: "revenue", Name: "Revenue", Type: model.CategoryTypeIncome, IsActive: true},
		{Slug: "interest_income", Name: "Interest Income", Type: model.CategoryTypeIncome, IsActive: true},
		{Slug: model.CategoryPayoutsClearing, Name: "Payouts & Clearing", Type: model.CategoryTypeSystem, IsActive: true},
		{Slug: "transfers", Name: "Transfers", Type: model.CategoryTypeSystem, IsActive: true},
		{Slug: model.CategoryMiscellaneous, Name: "Miscellaneous", Type: model.CategoryTypeExpense, IsActive: true},
	}
}
