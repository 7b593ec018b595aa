package rulecheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/signal"
)

// Severity ranks how urgently a conflict needs resolution.
type Severity int

// Severity levels, ascending.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Conflict is one finding in the rule set.
type Conflict struct {
	Kind        string
	Description string
	Keys        []string
	Severity    Severity
}

// ResolutionOrder is the canonical precedence when rule sources disagree.
var ResolutionOrder = []string{
	"mcc-exact",
	"vendor-exact",
	"mcc-family",
	"vendor-fuzzy",
	"keyword-high-weight",
	"keyword-low-weight",
}

// Report is the severity-ranked output of a full rule-set analysis.
type Report struct {
	Conflicts []Conflict
	// Resolution is the canonical resolution-order document.
	Resolution []string
}

// HasErrors reports whether any conflict is at error severity.
func (r Report) HasErrors() bool {
	for _, c := range r.Conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Analyze runs the full offline rule-set analysis: MCC conflicts between the
// compiled-in table and rule versions, overlapping vendor patterns, keyword
// intersections, and regex safety.
func Analyze(tables signal.Tables, rules []model.RuleVersion) Report {
	var conflicts []Conflict

	conflicts = append(conflicts, mccConflicts(tables.MCC, rules)...)
	conflicts = append(conflicts, vendorOverlaps(tables.Vendors)...)
	conflicts = append(conflicts, keywordIntersections(tables.Keywords)...)
	conflicts = append(conflicts, regexFindings(tables.Vendors)...)

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Severity > conflicts[j].Severity
	})

	return Report{Conflicts: conflicts, Resolution: ResolutionOrder}
}

// AdmitTables drops vendor regex patterns that fail the safety check,
// returning the sanitized tables and findings for each dropped pattern.
func AdmitTables(tables signal.Tables) (signal.Tables, []Conflict) {
	var findings []Conflict
	admitted := make([]signal.VendorPattern, 0, len(tables.Vendors))

	for _, p := range tables.Vendors {
		if p.Kind == signal.VendorRegex {
			if err := CheckRegexSafety(p.Pattern); err != nil {
				findings = append(findings, Conflict{
					Kind:        "unsafe_regex",
					Severity:    SeverityError,
					Description: err.Error(),
					Keys:        []string{p.Pattern},
				})
				continue
			}
		}
		admitted = append(admitted, p)
	}

	tables.Vendors = admitted
	return tables, findings
}

// mccConflicts finds MCC codes assigned different categories by different
// rule sources.
func mccConflicts(table signal.MCCTable, rules []model.RuleVersion) []Conflict {
	byCode := make(map[string]map[string]bool)
	for code, entry := range table {
		byCode[code] = map[string]bool{entry.Category: true}
	}
	for _, rule := range rules {
		if rule.Type != model.RuleTypeMCC || !rule.Active {
			continue
		}
		if byCode[rule.Pattern] == nil {
			byCode[rule.Pattern] = make(map[string]bool)
		}
		byCode[rule.Pattern][rule.Category] = true
	}

	var conflicts []Conflict
	for code, categories := range byCode {
		if len(categories) < 2 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:        "mcc_conflict",
			Severity:    SeverityError,
			Description: fmt.Sprintf("MCC %s maps to %d different categories: %s", code, len(categories), joinKeys(categories)),
			Keys:        []string{code},
		})
	}
	return conflicts
}

// vendorOverlaps finds pattern pairs that can match the same merchant text
// but point at different categories without priority disambiguation.
func vendorOverlaps(patterns []signal.VendorPattern) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			a, b := patterns[i], patterns[j]
			if a.Category == b.Category || !patternsOverlap(a, b) {
				continue
			}
			severity := SeverityWarning
			if a.Priority == b.Priority {
				severity = SeverityError
			}
			conflicts = append(conflicts, Conflict{
				Kind:     "vendor_overlap",
				Severity: severity,
				Description: fmt.Sprintf("patterns %q (%s -> %s) and %q (%s -> %s) overlap",
					a.Pattern, a.Kind, a.Category, b.Pattern, b.Kind, b.Category),
				Keys: []string{a.Pattern, b.Pattern},
			})
		}
	}
	return conflicts
}

// patternsOverlap is a conservative textual overlap test between two
// non-regex patterns; regex patterns are compared by literal containment.
func patternsOverlap(a, b signal.VendorPattern) bool {
	pa, pb := strings.ToLower(a.Pattern), strings.ToLower(b.Pattern)
	if pa == pb {
		return true
	}
	aFuzzy := a.Kind != signal.VendorExact && a.Kind != signal.VendorRegex
	bFuzzy := b.Kind != signal.VendorExact && b.Kind != signal.VendorRegex
	if aFuzzy && strings.Contains(pb, pa) {
		return true
	}
	if bFuzzy && strings.Contains(pa, pb) {
		return true
	}
	return false
}

// keywordIntersections finds keyword lists that intersect across categories
// without a mitigating exclude-list on either side.
func keywordIntersections(rules []signal.KeywordRule) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			a, b := rules[i], rules[j]
			if a.Category == b.Category {
				continue
			}
			shared := intersect(a.Keywords, b.Keywords)
			if len(shared) == 0 {
				continue
			}
			if len(a.Excludes) > 0 || len(b.Excludes) > 0 {
				// An exclude-list on either rule counts as mitigation.
				continue
			}
			conflicts = append(conflicts, Conflict{
				Kind:     "keyword_intersection",
				Severity: SeverityWarning,
				Description: fmt.Sprintf("rules %q (%s) and %q (%s) share keywords %s with no exclude-list",
					a.Name, a.Category, b.Name, b.Category, strings.Join(shared, ", ")),
				Keys: shared,
			})
		}
	}
	return conflicts
}

func regexFindings(patterns []signal.VendorPattern) []Conflict {
	var conflicts []Conflict
	for _, p := range patterns {
		if p.Kind != signal.VendorRegex {
			continue
		}
		if err := CheckRegexSafety(p.Pattern); err != nil {
			conflicts = append(conflicts, Conflict{
				Kind:        "unsafe_regex",
				Severity:    SeverityError,
				Description: err.Error(),
				Keys:        []string{p.Pattern},
			})
		}
	}
	return conflicts
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}
	var out []string
	for _, s := range b {
		if set[strings.ToLower(s)] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func joinKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
