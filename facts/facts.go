// Package facts extracts the per-file fact bundle the constraint evaluator
// consumes: imports, exports, declarations with their supertypes, ordered
// call sites, method and line counts, and the error-handling summary.
// Extraction is pluggable per language through a registry keyed by file
// extension; files with no registered extractor get a text-only bundle so
// pattern and line-count rules still apply.
package facts

import (
	"context"
	"strings"
)

// Declaration is one named declaration in a source file.
type Declaration struct {
	// Name is the declared identifier.
	Name string

	// Kind is the declaration form: class, interface, struct, enum, type,
	// func, method, const, or var.
	Kind string

	// Line is the 1-based declaration line.
	Line int

	// Exported reports whether the declaration is visible outside the file.
	Exported bool

	// Extends lists declared supertypes.
	Extends []string

	// Implements lists declared interfaces.
	Implements []string
}

// CallSite is one call occurrence in source order.
type CallSite struct {
	// Name is the callee as written: bare, or qualified like pkg.Func or
	// obj.method.
	Name string

	// Line is the 1-based call line.
	Line int
}

// Bundle is the full fact set for one file.
type Bundle struct {
	// Path is the file path the bundle was extracted from.
	Path string

	// Language identifies the extractor that produced the bundle.
	Language string

	// Text is the raw file content, used by pattern rules.
	Text string

	// TotalLines counts all lines; CodeLines excludes blank and
	// comment-only lines.
	TotalLines int
	CodeLines  int

	// Imports are the static import specifiers.
	Imports []string

	// Exports are the exported symbol names.
	Exports []string

	// Declarations in source order.
	Declarations []Declaration

	// Calls in source order.
	Calls []CallSite

	// PublicMethods counts externally visible methods.
	PublicMethods int

	// HandledCalls names calls wrapped in the language's error-handling
	// construct (try/catch, or an err check in Go).
	HandledCalls []string

	// HasTestCompanion reports whether a companion test artifact exists
	// per the language's naming convention.
	HasTestCompanion bool
}

// HasImport reports whether the bundle imports the exact specifier.
func (b *Bundle) HasImport(spec string) bool {
	for _, imp := range b.Imports {
		if imp == spec {
			return true
		}
	}
	return false
}

// HasExport reports whether the bundle exports the exact name.
func (b *Bundle) HasExport(name string) bool {
	for _, exp := range b.Exports {
		if exp == name {
			return true
		}
	}
	return false
}

// CallHandled reports whether the named call is wrapped in error handling.
func (b *Bundle) CallHandled(name string) bool {
	for _, c := range b.HandledCalls {
		if c == name || strings.HasSuffix(c, "."+name) {
			return true
		}
	}
	return false
}

// Extractor turns source bytes into a fact bundle.
type Extractor interface {
	Extract(ctx context.Context, path string, src []byte) (*Bundle, error)
}

// countLines returns total and code-only line counts. Comment detection
// covers //, #, and /* */ blocks, which spans every supported language.
func countLines(src string) (total, code int) {
	inBlock := false
	lines := strings.Split(src, "\n")
	total = len(lines)
	if total > 0 && lines[total-1] == "" {
		total--
	}
	for i := 0; i < total; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if inBlock {
			if idx := strings.Index(trimmed, "*/"); idx >= 0 {
				inBlock = false
				rest := strings.TrimSpace(trimmed[idx+2:])
				if rest != "" {
					code++
				}
			}
			continue
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			if !strings.Contains(trimmed, "*/") {
				inBlock = true
			}
			continue
		}
		code++
	}
	return total, code
}
