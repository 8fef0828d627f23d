package analysis

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"resumelens/internal/types"
)

type skillPattern struct {
	term    string
	pattern *regexp.Regexp
}

type categoryPatterns struct {
	name     string
	patterns []skillPattern
}

// SkillMatcher matches taxonomy terms at word boundaries. Letters and digits of
// any script count as word characters, so "pythonés" does not contain python.
// Patterns are compiled once; a SkillMatcher is safe for concurrent use.
type SkillMatcher struct {
	categories []categoryPatterns
}

// NewSkillMatcher compiles one pattern per taxonomy term
func NewSkillMatcher(taxonomy Taxonomy) *SkillMatcher {
	matcher := &SkillMatcher{categories: make([]categoryPatterns, 0, len(taxonomy.categories))}
	for _, category := range taxonomy.categories {
		compiled := categoryPatterns{name: category.Name, patterns: make([]skillPattern, 0, len(category.Terms))}
		for _, term := range category.Terms {
			compiled.patterns = append(compiled.patterns, skillPattern{
				term:    term,
				pattern: regexp.MustCompile(regexp.QuoteMeta(term)),
			})
		}
		matcher.categories = append(matcher.categories, compiled)
	}
	return matcher
}

// Match returns matched skills grouped by category, in taxonomy order.
// Categories without any match are omitted.
func (m *SkillMatcher) Match(text string) []types.SkillCategory {
	lowered := strings.ToLower(text)

	result := []types.SkillCategory{}
	for _, category := range m.categories {
		var found []string
		for _, skill := range category.patterns {
			if skill.matches(lowered) {
				found = append(found, skill.term)
			}
		}
		if len(found) > 0 {
			result = append(result, types.SkillCategory{Category: category.name, Skills: found})
		}
	}
	return result
}

// matches reports whether the term occurs in text with a word boundary on
// both sides.
func (s skillPattern) matches(text string) bool {
	for offset := 0; offset < len(text); {
		loc := s.pattern.FindStringIndex(text[offset:])
		if loc == nil {
			return false
		}
		start, end := offset+loc[0], offset+loc[1]
		if isWordBoundary(text, start) && isWordBoundary(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + max(size, 1)
	}
	return false
}

// isWordBoundary reports whether exactly one of the runes around byte
// offset i is a word character.
func isWordBoundary(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWordRune(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
