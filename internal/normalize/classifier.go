package normalize

import "strings"

// Classifier decides whether a normalized name denotes a business entity.
// Anything not classified as a business is treated as a person.
//
// Design decision: We expose classification as an interface rather than a
// function because keyword matching is a fuzzy heuristic — a person
// surnamed "Group" misclassifies — and callers may want to substitute a
// stricter strategy without touching the crawler.
type Classifier interface {
	// IsBusiness reports whether the normalized name is a business entity.
	IsBusiness(normalizedName string) bool
}

// entityKeywords is the fixed whole-word keyword set denoting corporate
// forms. Matching runs against post-normalization tokens.
var entityKeywords = map[string]bool{
	"LLC":         true,
	"INC":         true,
	"CORP":        true,
	"CO":          true,
	"LTD":         true,
	"LP":          true,
	"TRUST":       true,
	"REALTY":      true,
	"PROPERTIES":  true,
	"MANAGEMENT":  true,
	"HOLDINGS":    true,
	"GROUP":       true,
	"ENTERPRISES": true,
	"ASSOCIATES":  true,
	"PARTNERSHIP": true,
	"COMPANY":     true,
}

// KeywordClassifier classifies names by whole-word match against a
// keyword set of corporate forms.
type KeywordClassifier struct {
	keywords map[string]bool
}

// NewKeywordClassifier creates a classifier with the default keyword set.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{keywords: entityKeywords}
}

// NewKeywordClassifierWithKeywords creates a classifier with a custom
// keyword set. Keywords are matched whole-word against uppercase tokens.
func NewKeywordClassifierWithKeywords(keywords []string) *KeywordClassifier {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		set[strings.ToUpper(strings.TrimSpace(k))] = true
	}
	return &KeywordClassifier{keywords: set}
}

// IsBusiness reports whether any whole word of the normalized name is a
// corporate-form keyword.
func (c *KeywordClassifier) IsBusiness(normalizedName string) bool {
	for _, token := range strings.Fields(normalizedName) {
		if c.keywords[token] {
			return true
		}
	}
	return false
}
