package registry

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/archlint/rules"
)

// Closed field sets per node kind. Anything outside these sets is routed
// into the drift-warning list, never silently ignored and never fatal.
var (
	architectureFields = fieldSet(
		"description", "rationale", "inherits", "mixins", "constraints",
		"hints", "pointers", "deprecated_from", "migration_guide",
		"file_pattern", "default_path", "reference_implementations",
		"code_pattern", "expected_intents", "suggested_intents",
	)
	mixinFields = fieldSet(
		"description", "rationale", "inline", "constraints", "hints",
	)
	constraintFields = fieldSet(
		"rule", "value", "severity", "why", "when", "applies_when",
		"unless", "alternative", "category",
	)
)

// document is the top-level registry file shape.
type document struct {
	Version       string               `yaml:"version"`
	Architectures map[string]yaml.Node `yaml:"architectures"`
	Mixins        map[string]yaml.Node `yaml:"mixins"`
}

// Loader parses registry documents into Registry handles.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a registry loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFile reads and parses a registry document from disk.
func (l *Loader) LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return l.Load(data)
}

// Load parses a registry document. Structural YAML errors are fatal;
// malformed constraint payloads are recorded per architecture so only that
// architecture fails to resolve. Unknown fields become drift warnings.
func (l *Loader) Load(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	reg := New()
	reg.setVersion(doc.Version)

	for id, node := range doc.Architectures {
		arch := &ArchitectureNode{ID: id}
		if err := node.Decode(arch); err != nil {
			reg.SetArchitecture(&ArchitectureNode{ID: id})
			reg.setLoadError(id, fmt.Sprintf("malformed architecture: %v", err))
			continue
		}
		arch.ID = id
		l.collectDrift(reg, id, &node, architectureFields)
		reg.SetArchitecture(arch)
		if err := l.validateConstraints(reg, id, &node, arch.Constraints); err != nil {
			reg.setLoadError(id, err.Error())
		}
	}

	for id, node := range doc.Mixins {
		mixin := &Mixin{ID: id}
		if err := node.Decode(mixin); err != nil {
			return nil, fmt.Errorf("malformed mixin %s: %w", id, err)
		}
		mixin.ID = id
		if mixin.Inline != "" {
			switch mixin.Inline {
			case InlineAllowed, InlineOnly, InlineForbidden:
			default:
				return nil, fmt.Errorf("mixin %s: invalid inline mode %q", id, mixin.Inline)
			}
		}
		l.collectDrift(reg, id, &node, mixinFields)
		l.collectConstraintDrift(reg, id, &node)
		reg.SetMixin(mixin)
		for i, c := range mixin.Constraints {
			if err := validateConstraint(c); err != nil {
				return nil, fmt.Errorf("mixin %s constraint %d: %w", id, i, err)
			}
		}
	}

	if drift := reg.DriftWarnings(); len(drift) > 0 {
		l.logger.Warn("registry has unknown fields",
			slog.Int("count", len(drift)))
	}
	return reg, nil
}

// validateConstraints checks every constraint payload for one architecture.
// The first failure is returned so the architecture is marked unusable; the
// node itself stays registered for reporting.
func (l *Loader) validateConstraints(reg *Registry, id string, node *yaml.Node, constraints []Constraint) error {
	l.collectConstraintDrift(reg, id, node)
	for i, c := range constraints {
		if err := validateConstraint(c); err != nil {
			return fmt.Errorf("constraint %d: %v", i, err)
		}
	}
	return nil
}

func validateConstraint(c Constraint) error {
	if c.Rule == "" {
		return fmt.Errorf("missing rule")
	}
	if !rules.Known(c.Rule) {
		return fmt.Errorf("unknown rule kind: %s", c.Rule)
	}
	if c.Severity != "" && c.Severity != SeverityError && c.Severity != SeverityWarning {
		return fmt.Errorf("rule %s: invalid severity %q", c.Rule, c.Severity)
	}
	if spec, _ := rules.Lookup(c.Rule); spec.ValidatePayload != nil {
		if err := rules.ValidatePayload(c.Rule, c.Value); err != nil {
			return fmt.Errorf("rule %s: %v", c.Rule, err)
		}
	}
	return nil
}

// collectDrift walks a mapping node's keys against a closed field set.
func (l *Loader) collectDrift(reg *Registry, id string, node *yaml.Node, known map[string]bool) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !known[key] {
			reg.addDrift(id, key)
		}
	}
}

// collectConstraintDrift descends into the constraints sequence and checks
// each entry's keys.
func (l *Loader) collectConstraintDrift(reg *Registry, id string, node *yaml.Node) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "constraints" {
			continue
		}
		seq := node.Content[i+1]
		if seq.Kind != yaml.SequenceNode {
			return
		}
		for _, entry := range seq.Content {
			l.collectDrift(reg, id, entry, constraintFields)
		}
		return
	}
}

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
