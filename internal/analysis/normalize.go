package analysis

import "strings"

// Normalize lowercases text, replaces every character outside [a-z0-9+#. ]
// with a space, collapses whitespace runs and trims the result.
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isNormalizedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func isNormalizedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '+', r == '#', r == '.', r == ' ':
		return true
	}
	return false
}

// isAlpha mirrors an alphabetic-only check over normalized tokens.
func isAlpha(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
