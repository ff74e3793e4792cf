package rules

import (
	"fmt"
	"strings"
	"unicode"
)

// Case names a symbol-casing convention. Shared by naming_pattern payloads
// and coverage transform templates.
type Case string

const (
	PascalCase Case = "PascalCase"
	CamelCase  Case = "camelCase"
	SnakeCase  Case = "snake_case"
	UpperCase  Case = "UPPER_CASE"
	KebabCase  Case = "kebab-case"
)

// ParseCase maps a registry-document case name to a Case.
func ParseCase(name string) (Case, error) {
	switch Case(name) {
	case PascalCase, CamelCase, SnakeCase, UpperCase, KebabCase:
		return Case(name), nil
	}
	return "", fmt.Errorf("unknown case convention: %s", name)
}

// Convert re-renders s in the target case. The input is first split into
// words on existing case and separator boundaries, so any source convention
// converts to any other.
func Convert(c Case, s string) string {
	words := splitWords(s)
	if len(words) == 0 {
		return s
	}
	switch c {
	case PascalCase:
		var b strings.Builder
		for _, w := range words {
			b.WriteString(titleWord(w))
		}
		return b.String()
	case CamelCase:
		var b strings.Builder
		for i, w := range words {
			if i == 0 {
				b.WriteString(strings.ToLower(w))
			} else {
				b.WriteString(titleWord(w))
			}
		}
		return b.String()
	case SnakeCase:
		return joinLower(words, "_")
	case UpperCase:
		return strings.ToUpper(joinLower(words, "_"))
	case KebabCase:
		return joinLower(words, "-")
	}
	return s
}

// Matches reports whether s already conforms to the case convention.
func Matches(c Case, s string) bool {
	if s == "" {
		return false
	}
	switch c {
	case PascalCase:
		return !strings.ContainsAny(s, "_-") && unicode.IsUpper(rune(s[0])) && isAlnum(s)
	case CamelCase:
		return !strings.ContainsAny(s, "_-") && unicode.IsLower(rune(s[0])) && isAlnum(s)
	case SnakeCase:
		return s == strings.ToLower(s) && !strings.Contains(s, "-") && isAlnumSep(s, '_')
	case UpperCase:
		return s == strings.ToUpper(s) && !strings.Contains(s, "-") && isAlnumSep(s, '_')
	case KebabCase:
		return s == strings.ToLower(s) && !strings.Contains(s, "_") && isAlnumSep(s, '-')
	}
	return false
}

// splitWords breaks an identifier into its component words, honoring
// underscore, hyphen, and lower-to-upper camel boundaries. Runs of capitals
// stay together until the last capital before a lowercase letter (HTTPServer
// splits as HTTP, Server).
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	runes := []rune(s)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r):
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && cur.Len() > 0) {
				flush()
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	lower := strings.ToLower(w)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func joinLower(words []string, sep string) string {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	return strings.Join(lowered, sep)
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isAlnumSep(s string, sep rune) bool {
	for _, r := range s {
		if r != sep && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
