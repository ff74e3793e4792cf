package evaluate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/archlint/facts"
)

// evalCondition evaluates a gating expression against a fact bundle.
// Conditions take the form predicate:argument; the predicate set is small
// and closed:
//
//	has_import:<specifier glob>  file imports a matching module
//	matches:<regex>              file text matches
//	file_name:<glob>             base name (with extension) matches
//	exports:<name>               file exports the name
//	declares:<name>              file declares the name
//	language:<name>              bundle language equals
//
// An unknown predicate or a malformed argument is an evaluation error; the
// caller downgrades it to a skipped constraint with a warning.
func evalCondition(cond string, b *facts.Bundle) (bool, error) {
	pred, arg, ok := strings.Cut(cond, ":")
	if !ok {
		return false, fmt.Errorf("malformed condition %q", cond)
	}
	pred = strings.TrimSpace(pred)
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return false, fmt.Errorf("condition %q has no argument", cond)
	}

	switch pred {
	case "has_import":
		for _, imp := range b.Imports {
			if specifierMatches(arg, imp) {
				return true, nil
			}
		}
		return false, nil

	case "matches":
		re, err := regexp.Compile(arg)
		if err != nil {
			return false, fmt.Errorf("condition regex: %w", err)
		}
		return re.MatchString(b.Text), nil

	case "file_name":
		ok, err := doublestar.Match(arg, filepath.Base(b.Path))
		if err != nil {
			return false, fmt.Errorf("condition glob: %w", err)
		}
		return ok, nil

	case "exports":
		return b.HasExport(arg), nil

	case "declares":
		for _, d := range b.Declarations {
			if d.Name == arg {
				return true, nil
			}
		}
		return false, nil

	case "language":
		return b.Language == arg, nil

	default:
		return false, fmt.Errorf("unknown condition predicate %q", pred)
	}
}

// specifierMatches applies glob-style matching of a module specifier against
// an import path. A bare specifier also matches any subpath under it, so
// "lodash" covers "lodash/merge".
func specifierMatches(spec, importPath string) bool {
	if spec == importPath {
		return true
	}
	if strings.HasPrefix(importPath, spec+"/") {
		return true
	}
	ok, err := doublestar.Match(spec, importPath)
	if err != nil {
		return false
	}
	return ok
}
