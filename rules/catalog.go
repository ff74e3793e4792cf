// Package rules defines the closed catalog of constraint kinds understood by
// the validation engine. Each kind declares the shape of its payload and how
// to decode it from the loosely typed value a registry document carries.
// Payload validation happens once, at registry load time; evaluation reuses
// the decoded payloads without re-validating per file.
package rules

import (
	"fmt"
	"sort"
)

// Kind identifies one constraint rule kind.
type Kind string

// The full set of rule kinds. The catalog is closed: a registry document
// naming any other kind is a configuration error.
const (
	ForbidImport      Kind = "forbid_import"
	RequireImport     Kind = "require_import"
	ForbidPattern     Kind = "forbid_pattern"
	RequirePattern    Kind = "require_pattern"
	RequireOneOf      Kind = "require_one_of"
	NamingPattern     Kind = "naming_pattern"
	MaxFileLines      Kind = "max_file_lines"
	MaxPublicMethods  Kind = "max_public_methods"
	RequireCallBefore Kind = "require_call_before"
	RequireTryCatch   Kind = "require_try_catch"
	RequireTestFile   Kind = "require_test_file"
	RequireExport     Kind = "require_export"
	MustExtend        Kind = "must_extend"
	Implements        Kind = "implements"
	RequireCoverage   Kind = "require_coverage"
)

// Spec describes one rule kind: what payload it takes and how to check it.
type Spec struct {
	// Kind is the rule identifier as written in registry documents.
	Kind Kind

	// Doc is a one-line description used by reporters.
	Doc string

	// ValidatePayload checks a raw payload value decoded from YAML.
	// A nil function means the kind takes no payload.
	ValidatePayload func(value any) error
}

var catalog = map[Kind]Spec{
	ForbidImport: {
		Kind:            ForbidImport,
		Doc:             "file must not import any of the listed module specifiers",
		ValidatePayload: validateSpecifierList,
	},
	RequireImport: {
		Kind:            RequireImport,
		Doc:             "file must import every listed module specifier",
		ValidatePayload: validateSpecifierList,
	},
	ForbidPattern: {
		Kind:            ForbidPattern,
		Doc:             "file text must not match the pattern",
		ValidatePayload: validatePattern,
	},
	RequirePattern: {
		Kind:            RequirePattern,
		Doc:             "file text must match the pattern",
		ValidatePayload: validatePattern,
	},
	RequireOneOf: {
		Kind:            RequireOneOf,
		Doc:             "file text must match at least one candidate pattern",
		ValidatePayload: validatePatternList,
	},
	NamingPattern: {
		Kind:            NamingPattern,
		Doc:             "file or symbol names must conform to the case rule and affixes",
		ValidatePayload: validateNaming,
	},
	MaxFileLines: {
		Kind:            MaxFileLines,
		Doc:             "file line count must not exceed the threshold",
		ValidatePayload: validateLimit,
	},
	MaxPublicMethods: {
		Kind:            MaxPublicMethods,
		Doc:             "public method count must not exceed the threshold",
		ValidatePayload: validateLimit,
	},
	RequireCallBefore: {
		Kind:            RequireCallBefore,
		Doc:             "the target call must occur before the anchor call",
		ValidatePayload: validateCallBefore,
	},
	RequireTryCatch: {
		Kind:            RequireTryCatch,
		Doc:             "the target construct must be wrapped in error handling",
		ValidatePayload: validateTryCatch,
	},
	RequireTestFile: {
		Kind: RequireTestFile,
		Doc:  "a companion test artifact must exist per naming convention",
	},
	RequireExport: {
		Kind:            RequireExport,
		Doc:             "the named export must be present",
		ValidatePayload: validateName,
	},
	MustExtend: {
		Kind:            MustExtend,
		Doc:             "a declared type must extend the named supertype",
		ValidatePayload: validateName,
	},
	Implements: {
		Kind:            Implements,
		Doc:             "a declared type must implement the named interface",
		ValidatePayload: validateName,
	},
	RequireCoverage: {
		Kind:            RequireCoverage,
		Doc:             "every discovered source value must have a matching target artifact",
		ValidatePayload: validateCoverage,
	},
}

// Known reports whether kind is part of the catalog.
func Known(kind Kind) bool {
	_, ok := catalog[kind]
	return ok
}

// Lookup returns the catalog entry for kind.
func Lookup(kind Kind) (Spec, bool) {
	s, ok := catalog[kind]
	return s, ok
}

// Kinds returns all catalog kinds in lexical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ValidatePayload checks a raw payload value against the declared shape for
// kind. An unknown kind is itself an error.
func ValidatePayload(kind Kind, value any) error {
	spec, ok := catalog[kind]
	if !ok {
		return fmt.Errorf("unknown rule kind: %s", kind)
	}
	if spec.ValidatePayload == nil {
		return nil
	}
	return spec.ValidatePayload(value)
}
