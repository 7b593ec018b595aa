// Package rulecheck is the offline static analyzer for the rule set: it
// finds conflicting rules and rejects regex patterns that are not safe to
// admit. It never runs on the request path.
package rulecheck

import (
	"fmt"
	"regexp/syntax"
)

// CheckRegexSafety verifies that a pattern is safe to admit into the vendor
// pattern set: it must parse, and it must be free of the shapes that cause
// catastrophic backtracking on backtracking engines (nested quantifiers and
// repeated alternations with overlapping branches). Patterns are checked
// once, offline, before admission.
func CheckRegexSafety(pattern string) error {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return checkNode(re.Simplify(), false)
}

func checkNode(re *syntax.Regexp, inRepeat bool) error {
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		if inRepeat {
			return fmt.Errorf("nested quantifier in %q", re.String())
		}
		for _, sub := range re.Sub {
			if err := checkNode(sub, true); err != nil {
				return err
			}
		}
		return nil
	case syntax.OpAlternate:
		if inRepeat && branchesOverlap(re.Sub) {
			return fmt.Errorf("repeated alternation with overlapping branches in %q", re.String())
		}
		for _, sub := range re.Sub {
			if err := checkNode(sub, inRepeat); err != nil {
				return err
			}
		}
		return nil
	default:
		for _, sub := range re.Sub {
			if err := checkNode(sub, inRepeat); err != nil {
				return err
			}
		}
		return nil
	}
}

// branchesOverlap reports whether two alternation branches can start with the
// same rune, the precondition for ambiguous repetition.
func branchesOverlap(subs []*syntax.Regexp) bool {
	seen := make(map[rune]bool)
	for _, sub := range subs {
		for _, r := range firstRunes(sub) {
			if seen[r] {
				return true
			}
			seen[r] = true
		}
	}
	return false
}

// firstRunes returns a conservative sample of runes a subexpression can start
// with. An empty result means "unknown", treated as non-overlapping.
func firstRunes(re *syntax.Regexp) []rune {
	switch re.Op {
	case syntax.OpLiteral:
		if len(re.Rune) > 0 {
			return re.Rune[:1]
		}
	case syntax.OpCharClass:
		var runes []rune
		for i := 0; i+1 < len(re.Rune); i += 2 {
			lo, hi := re.Rune[i], re.Rune[i+1]
			for r := lo; r <= hi && len(runes) < 64; r++ {
				runes = append(runes, r)
			}
		}
		return runes
	case syntax.OpConcat, syntax.OpCapture:
		if len(re.Sub) > 0 {
			return firstRunes(re.Sub[0])
		}
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		if len(re.Sub) > 0 {
			return firstRunes(re.Sub[0])
		}
	}
	return nil
}
