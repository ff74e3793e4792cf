package resolver

import (
	"fmt"
	"regexp"

	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/rules"
)

// ResolvedConstraint is one constraint after flattening, tagged with the
// architecture or mixin it came from.
type ResolvedConstraint struct {
	registry.Constraint

	// Origin is the architecture or mixin id that declared the constraint.
	Origin string

	// FromMixin is true when Origin names a mixin.
	FromMixin bool
}

// ResolvedHint is a hint or pointer with its provenance.
type ResolvedHint struct {
	Text   string
	Origin string
}

// FlattenedArchitecture is the fully computed rule set for one architecture
// id plus any inline mixins: the inheritance chain root to leaf, the applied
// mixins in application order, and the strictly additive constraint union
// with provenance. Immutable once built; safe to share across validations.
type FlattenedArchitecture struct {
	ArchID  string
	Version string

	// InheritanceChain lists architecture ids root first.
	InheritanceChain []string

	// AppliedMixins lists mixin ids in application order, registry-declared
	// before inline.
	AppliedMixins []string

	// Constraints in evaluation and display order: most general first,
	// architecture before its mixins, inline mixins last.
	Constraints []ResolvedConstraint

	Hints    []ResolvedHint
	Pointers []ResolvedHint

	// Descriptive fields resolve leaf-first with nearest-ancestor fallback.
	Description              string
	Rationale                string
	DeprecatedFrom           string
	MigrationGuide           string
	FilePattern              string
	DefaultPath              string
	CodePattern              string
	ReferenceImplementations []string
	ExpectedIntents          []string
	SuggestedIntents         []string

	// patterns caches compiled regexes per constraint index so repeated
	// validation of many files against one architecture never recompiles.
	// A nil entry with a nil error means the kind carries no regex.
	patterns    []*regexp.Regexp
	patternErrs []error
}

// CompiledPattern returns the cached regex for the constraint at index i.
// Kinds without a regex payload return (nil, nil).
func (f *FlattenedArchitecture) CompiledPattern(i int) (*regexp.Regexp, error) {
	if i < 0 || i >= len(f.patterns) {
		return nil, fmt.Errorf("constraint index %d out of range", i)
	}
	return f.patterns[i], f.patternErrs[i]
}

// ExpectsIntent reports whether name is listed among the architecture's
// expected or suggested intents.
func (f *FlattenedArchitecture) ExpectsIntent(name string) bool {
	for _, in := range f.ExpectedIntents {
		if in == name {
			return true
		}
	}
	for _, in := range f.SuggestedIntents {
		if in == name {
			return true
		}
	}
	return false
}

// compilePatterns precomputes regexes for every pattern-bearing constraint.
// Compile failures are cached as errors; evaluation downgrades them to
// skipped-with-warning per constraint.
func (f *FlattenedArchitecture) compilePatterns() {
	f.patterns = make([]*regexp.Regexp, len(f.Constraints))
	f.patternErrs = make([]error, len(f.Constraints))

	for i, c := range f.Constraints {
		switch c.Rule {
		case rules.ForbidPattern, rules.RequirePattern:
			payload, err := rules.DecodePattern(c.Value)
			if err != nil {
				f.patternErrs[i] = err
				continue
			}
			re, err := regexp.Compile(payload.Pattern)
			if err != nil {
				f.patternErrs[i] = err
				continue
			}
			f.patterns[i] = re
		}
	}
}
