package signal

import (
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Generic terms that appear in almost any transaction description; a match
// built on one of these is penalized.
var genericTerms = map[string]bool{
	"fee":      true,
	"payment":  true,
	"com":      true,
	"online":   true,
	"purchase": true,
}

const (
	keywordBonusPerMatch = 0.05
	keywordBonusCap      = 0.10
	genericTermPenalty   = 0.10
)

// KeywordExtractor scores description text against domain-scoped keyword
// lists and returns the single best-scoring rule.
type KeywordExtractor struct {
	rules []KeywordRule
}

// NewKeywordExtractor creates a keyword extractor over the given rules.
func NewKeywordExtractor(rules []KeywordRule) *KeywordExtractor {
	return &KeywordExtractor{rules: rules}
}

// Extract returns a signal for the best-scoring keyword rule, or nil when no
// rule matches. A missing description degrades to no signal, never an error.
func (e *KeywordExtractor) Extract(txn model.Transaction) *model.CategorizationSignal {
	text := strings.ToLower(txn.Description + " " + txn.MerchantName)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var best *model.CategorizationSignal
	var bestScore float64

	for _, rule := range e.rules {
		matched, score := e.scoreRule(rule, text)
		if len(matched) == 0 {
			continue
		}
		if best == nil || score > bestScore {
			strength := model.StrengthWeak
			if len(matched) >= 2 {
				strength = model.StrengthMedium
			}
			best = &model.CategorizationSignal{
				Type:         model.SignalKeyword,
				Category:     rule.Category,
				Strength:     strength,
				Confidence:   score,
				EvidenceKey:  rule.Name,
				Rationale:    fmt.Sprintf("keywords %s matched for %s", strings.Join(matched, ", "), rule.Category),
				MatchedTerms: matched,
			}
			bestScore = score
		}
	}
	return best
}

// scoreRule returns the matched keywords and the rule's confidence score.
// Exclude terms disqualify the rule outright.
func (e *KeywordExtractor) scoreRule(rule KeywordRule, text string) ([]string, float64) {
	for _, exclude := range rule.Excludes {
		if containsWord(text, strings.ToLower(exclude)) {
			return nil, 0
		}
	}

	var matched []string
	generic := 0
	for _, kw := range rule.Keywords {
		lower := strings.ToLower(kw)
		if containsWord(text, lower) {
			matched = append(matched, kw)
			if genericTerms[lower] {
				generic++
			}
		}
	}
	if len(matched) == 0 {
		return nil, 0
	}

	bonus := float64(len(matched)-1) * keywordBonusPerMatch
	if bonus > keywordBonusCap {
		bonus = keywordBonusCap
	}

	score := rule.Confidence + bonus - float64(generic)*genericTermPenalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return matched, score
}

// containsWord reports whether text contains term as a whole word.
func containsWord(text, term string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
