package coverage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// sourceValue is one discovered value with its origin for gap reporting.
type sourceValue struct {
	value string
	file  string
	line  int
}

// defaultExtract pulls quoted literals (either quote style) out of a span.
var defaultExtract = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// exportedSymbol recognizes exported declarations across the supported
// source languages: TS/JS export statements and Go capitalized top-level
// declarations.
var exportedSymbol = regexp.MustCompile(`(?m)^\s*(?:export\s+(?:default\s+)?(?:abstract\s+)?(?:async\s+)?(?:function\*?|class|const|let|var|interface|type|enum)\s+([A-Za-z_$][\w$]*)|func\s+([A-Z]\w*)|type\s+([A-Z]\w*))`)

// discoverSources runs the strategy selected by cfg.SourceType over the
// already-read source files.
func discoverSources(cfg Config, files []fileContent, rel func(string) string) ([]sourceValue, error) {
	switch cfg.SourceType {
	case "export_names":
		return exportNames(cfg, files, rel), nil
	case "string_literals":
		return stringLiterals(cfg, files, rel)
	case "union_members":
		return unionMembers(cfg, files, rel), nil
	case "object_keys":
		return objectKeys(cfg, files, rel), nil
	case "file_names":
		return fileNames(cfg, files, rel), nil
	default:
		return nil, fmt.Errorf("unknown source_type: %s", cfg.SourceType)
	}
}

// exportNames collects exported symbol names matching the source_pattern
// name glob.
func exportNames(cfg Config, files []fileContent, rel func(string) string) []sourceValue {
	var values []sourceValue
	for _, f := range files {
		for _, idx := range exportedSymbol.FindAllStringSubmatchIndex(f.content, -1) {
			name := submatch(f.content, idx)
			if name == "" || !nameMatches(cfg.SourcePattern, name) {
				continue
			}
			values = append(values, sourceValue{
				value: name,
				file:  rel(f.path),
				line:  lineAt(f.content, idx[0]),
			})
		}
	}
	return values
}

// stringLiterals locates source_pattern (a regex whose first capture group
// spans a type/union expression) and extracts every quoted literal within
// that span.
func stringLiterals(cfg Config, files []fileContent, rel func(string) string) ([]sourceValue, error) {
	if cfg.SourcePattern == "" {
		return nil, fmt.Errorf("string_literals requires source_pattern")
	}
	locator, err := regexp.Compile(cfg.SourcePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid source_pattern: %w", err)
	}
	extract := defaultExtract
	if cfg.ExtractValues != "" {
		if extract, err = regexp.Compile(cfg.ExtractValues); err != nil {
			return nil, fmt.Errorf("invalid extract_values: %w", err)
		}
	}

	var values []sourceValue
	for _, f := range files {
		for _, idx := range locator.FindAllStringSubmatchIndex(f.content, -1) {
			start, end := idx[0], idx[1]
			if len(idx) >= 4 && idx[2] >= 0 {
				start, end = idx[2], idx[3]
			}
			span := f.content[start:end]
			for _, m := range extract.FindAllStringSubmatchIndex(span, -1) {
				v := submatch(span, m)
				if v == "" {
					continue
				}
				values = append(values, sourceValue{
					value: v,
					file:  rel(f.path),
					line:  lineAt(f.content, start+m[0]),
				})
			}
		}
	}
	return values, nil
}

var unionDecl = regexp.MustCompile(`(?m)^\s*(?:export\s+)?type\s+([A-Za-z_$][\w$]*)\s*=`)

// unionMembers locates a named union-type declaration and extracts its
// literal members. Parenthesized and nested unions flatten naturally: the
// members are exactly the quoted literals of the captured expression.
func unionMembers(cfg Config, files []fileContent, rel func(string) string) []sourceValue {
	var values []sourceValue
	for _, f := range files {
		for _, idx := range unionDecl.FindAllStringSubmatchIndex(f.content, -1) {
			name := f.content[idx[2]:idx[3]]
			if !nameMatches(cfg.SourcePattern, name) {
				continue
			}
			expr := captureTypeExpr(f.content[idx[1]:])
			for _, m := range defaultExtract.FindAllStringSubmatchIndex(expr, -1) {
				v := submatch(expr, m)
				if v == "" {
					continue
				}
				values = append(values, sourceValue{
					value: v,
					file:  rel(f.path),
					line:  lineAt(f.content, idx[1]+m[0]),
				})
			}
		}
	}
	return values
}

// objectKeys locates a named object literal and extracts its top-level
// property keys, quoted or identifier form.
func objectKeys(cfg Config, files []fileContent, rel func(string) string) []sourceValue {
	declRe := regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=\n]*)?=\s*\{`)

	var values []sourceValue
	for _, f := range files {
		for _, idx := range declRe.FindAllStringSubmatchIndex(f.content, -1) {
			name := f.content[idx[2]:idx[3]]
			if !nameMatches(cfg.SourcePattern, name) {
				continue
			}
			open := idx[1] - 1 // position of the opening brace
			body, ok := braceBody(f.content, open)
			if !ok {
				continue
			}
			for _, key := range topLevelKeys(body) {
				values = append(values, sourceValue{
					value: key.name,
					file:  rel(f.path),
					line:  lineAt(f.content, open+1+key.offset),
				})
			}
		}
	}
	return values
}

// fileNames yields the basename (minus extension) of every source file.
func fileNames(cfg Config, files []fileContent, rel func(string) string) []sourceValue {
	var values []sourceValue
	for _, f := range files {
		base := filepath.Base(f.path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if !nameMatches(cfg.SourcePattern, name) {
			continue
		}
		values = append(values, sourceValue{value: name, file: rel(f.path), line: 1})
	}
	return values
}

// captureTypeExpr takes the text following "type Name =" up to the end of
// the type expression: a semicolon at paren depth zero, or a line boundary
// where the expression does not continue with a union bar.
func captureTypeExpr(rest string) string {
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case ';':
			if depth == 0 {
				return rest[:i]
			}
		case '\n':
			if depth != 0 {
				continue
			}
			before := strings.TrimSpace(rest[:i])
			after := strings.TrimSpace(rest[i+1:])
			continues := strings.HasSuffix(before, "|") || strings.HasSuffix(before, "=") ||
				strings.HasPrefix(after, "|")
			if !continues {
				return rest[:i]
			}
		}
	}
	return rest
}

// braceBody returns the text between the brace at open and its match.
func braceBody(s string, open int) (string, bool) {
	if open < 0 || open >= len(s) || s[open] != '{' {
		return "", false
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i], true
			}
		}
	}
	return "", false
}

type objectKey struct {
	name   string
	offset int
}

var keyRe = regexp.MustCompile(`^\s*(?:"([^"]+)"|'([^']+)'|([A-Za-z_$][\w$]*))\s*:`)

// topLevelKeys extracts property keys at depth zero of an object body.
func topLevelKeys(body string) []objectKey {
	var keys []objectKey
	depth := 0
	segStart := 0
	for i := 0; i <= len(body); i++ {
		if i < len(body) {
			switch body[i] {
			case '{', '[', '(':
				depth++
			case '}', ']', ')':
				depth--
			}
		}
		boundary := i == len(body) || ((body[i] == '\n' || body[i] == ',') && depth == 0)
		if !boundary {
			continue
		}
		segment := body[segStart:i]
		if m := keyRe.FindStringSubmatchIndex(segment); m != nil {
			name := submatch(segment, m)
			if name != "" {
				keys = append(keys, objectKey{name: name, offset: segStart + m[0]})
			}
		}
		segStart = i + 1
	}
	return keys
}

// submatch returns the first non-empty capture group of a submatch index
// set, falling back to the whole match.
func submatch(s string, idx []int) string {
	for g := 1; 2*g+1 < len(idx); g++ {
		lo, hi := idx[g*2], idx[g*2+1]
		if lo >= 0 && hi >= lo {
			if v := s[lo:hi]; v != "" {
				return v
			}
		}
	}
	if idx[0] >= 0 {
		return s[idx[0]:idx[1]]
	}
	return ""
}

// nameMatches applies a name glob; an empty pattern matches everything.
func nameMatches(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return ok
}

// lineAt returns the 1-based line number of byte offset pos.
func lineAt(s string, pos int) int {
	if pos > len(s) {
		pos = len(s)
	}
	return strings.Count(s[:pos], "\n") + 1
}
