// Package validate orchestrates per-file validation: it resolves the file's
// architecture tag, evaluates every flattened constraint against the file's
// fact bundle, routes violations through override suppression, and
// aggregates the outcome. Errors local to one file or one constraint never
// abort a batch run.
package validate

import (
	"github.com/c360studio/archlint/override"
	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/rules"
)

// ResolutionRule is the synthetic rule name carried by the violation a
// resolution failure produces. Overrides target specific rules, never
// resolution itself, so this violation is unsuppressable.
const ResolutionRule rules.Kind = "architecture_resolution"

// Violation is one reported constraint failure.
type Violation struct {
	Rule     rules.Kind        `json:"rule"`
	Severity registry.Severity `json:"severity"`
	Message  string            `json:"message"`

	// Origin is the architecture or mixin id that declared the constraint.
	Origin    string `json:"provenance"`
	FromMixin bool   `json:"fromMixin,omitempty"`

	// Value identifies the offending payload item for override targeting.
	Value string `json:"value,omitempty"`

	Why         string `json:"why,omitempty"`
	Alternative string `json:"alternative,omitempty"`
}

// SuppressedViolation pairs a violation with the override that silenced it.
type SuppressedViolation struct {
	Violation Violation         `json:"violation"`
	Override  override.Override `json:"override"`
}

// Warning is a non-fatal problem: a skipped constraint, an invalid override,
// or registry drift.
type Warning struct {
	Rule    rules.Kind `json:"rule,omitempty"`
	Origin  string     `json:"provenance,omitempty"`
	Message string     `json:"message"`
}

// Result is the validation outcome for one file.
type Result struct {
	Path         string                `json:"path"`
	ArchID       string                `json:"archId"`
	InlineMixins []string              `json:"inlineMixins,omitempty"`
	Violations   []Violation           `json:"violations"`
	Suppressed   []SuppressedViolation `json:"suppressed,omitempty"`
	Warnings     []Warning             `json:"warnings,omitempty"`

	// Passed is false when any unsuppressed error-severity violation
	// remains. Strict-mode failure is a reporting decision; see Failed.
	Passed bool `json:"passed"`
}

// Failed reports overall failure: any unsuppressed error violation, or in
// strict mode any unsuppressed violation at all.
func (r *Result) Failed(strict bool) bool {
	for _, v := range r.Violations {
		if v.Severity == registry.SeverityError || strict {
			return true
		}
	}
	return false
}

// Batch aggregates a multi-file run.
type Batch struct {
	// RunID uniquely identifies the run for diagnostics correlation.
	RunID string `json:"runId"`

	// Results in path order.
	Results []*Result `json:"results"`

	// Skipped counts files with no architecture tag.
	Skipped int `json:"skipped"`
}

// Failed reports whether any file in the batch failed.
func (b *Batch) Failed(strict bool) bool {
	for _, r := range b.Results {
		if r.Failed(strict) {
			return true
		}
	}
	return false
}
