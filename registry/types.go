// Package registry holds the architecture registry document model: named
// architecture nodes with single inheritance, reusable mixins, and the
// constraints both carry. A Registry is an explicit handle passed to the
// resolver; nothing here is process-global, so multiple registries (for
// example two versions under comparison) can coexist.
package registry

import "github.com/c360studio/archlint/rules"

// Severity classifies how a violated constraint affects the overall verdict.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// InlineMode controls how a mixin may be applied to an architecture.
type InlineMode string

const (
	// InlineAllowed permits both registry-declared and inline application.
	InlineAllowed InlineMode = "allowed"

	// InlineOnly restricts the mixin to inline +name tags on files.
	InlineOnly InlineMode = "only"

	// InlineForbidden restricts the mixin to registry mixins lists.
	InlineForbidden InlineMode = "forbidden"
)

// Constraint is one enforceable rule as written in a registry document.
// Value is kind-specific; its shape is validated once at load time against
// the rule catalog.
type Constraint struct {
	Rule        rules.Kind `yaml:"rule"`
	Value       any        `yaml:"value"`
	Severity    Severity   `yaml:"severity"`
	Why         string     `yaml:"why"`
	When        string     `yaml:"when"`
	AppliesWhen string     `yaml:"applies_when"`
	Unless      string     `yaml:"unless"`
	Alternative string     `yaml:"alternative"`
	Category    string     `yaml:"category"`
}

// EffectiveSeverity returns the constraint severity, defaulting to error.
func (c Constraint) EffectiveSeverity() Severity {
	if c.Severity == SeverityWarning {
		return SeverityWarning
	}
	return SeverityError
}

// ArchitectureNode is one named architecture definition. Immutable once
// loaded.
type ArchitectureNode struct {
	ID                       string       `yaml:"-"`
	Description              string       `yaml:"description"`
	Rationale                string       `yaml:"rationale"`
	Inherits                 string       `yaml:"inherits"`
	Mixins                   []string     `yaml:"mixins"`
	Constraints              []Constraint `yaml:"constraints"`
	Hints                    []string     `yaml:"hints"`
	Pointers                 []string     `yaml:"pointers"`
	DeprecatedFrom           string       `yaml:"deprecated_from"`
	MigrationGuide           string       `yaml:"migration_guide"`
	FilePattern              string       `yaml:"file_pattern"`
	DefaultPath              string       `yaml:"default_path"`
	ReferenceImplementations []string     `yaml:"reference_implementations"`
	CodePattern              string       `yaml:"code_pattern"`
	ExpectedIntents          []string     `yaml:"expected_intents"`
	SuggestedIntents         []string     `yaml:"suggested_intents"`
}

// Mixin is a reusable, composable bundle of constraints and hints.
type Mixin struct {
	ID          string       `yaml:"-"`
	Description string       `yaml:"description"`
	Rationale   string       `yaml:"rationale"`
	Inline      InlineMode   `yaml:"inline"`
	Constraints []Constraint `yaml:"constraints"`
	Hints       []string     `yaml:"hints"`
}

// Mode returns the mixin's inline mode, defaulting to allowed.
func (m *Mixin) Mode() InlineMode {
	switch m.Inline {
	case InlineOnly, InlineForbidden:
		return m.Inline
	}
	return InlineAllowed
}

// DriftWarning records an unknown field encountered during load. Drift is
// never fatal and never silently dropped: reporters surface the full list
// once per load.
type DriftWarning struct {
	// Node is the architecture or mixin id carrying the unknown field.
	Node string

	// Field is the unrecognized key.
	Field string
}
