// Package coverage implements the require_coverage rule: it discovers a set
// of source values (exported names, union members, object keys, string
// literals, or file basenames), optionally re-cases them through a transform
// template, and checks that each substituted target string appears somewhere
// in a target file set.
//
// Target matching is plain substring containment over the concatenated
// target content. A short value can therefore match inside a longer
// unrelated string; that is the observed contract of the rule, kept as-is.
package coverage

import (
	"fmt"
	"strings"

	"github.com/c360studio/archlint/rules"
)

// Config describes one coverage check.
type Config struct {
	// SourceType selects the discovery strategy: export_names,
	// string_literals, union_members, object_keys, or file_names.
	SourceType string `yaml:"source_type"`

	// SourcePattern narrows discovery. Its meaning depends on SourceType:
	// a name glob for export_names/union_members/object_keys/file_names, a
	// regex with a capture group for string_literals.
	SourcePattern string `yaml:"source_pattern"`

	// ExtractValues is the regex (group 1) pulling values out of the span
	// string_literals locates. Defaults to quoted literals.
	ExtractValues string `yaml:"extract_values"`

	// InFiles is the glob for source discovery files.
	InFiles string `yaml:"in_files"`

	// TargetPattern is the template the value is substituted into via the
	// ${value} token before the containment test.
	TargetPattern string `yaml:"target_pattern"`

	// InTargetFiles is the glob for the files searched for targets.
	InTargetFiles string `yaml:"in_target_files"`

	// Transform optionally re-cases the raw value before substitution:
	// either a bare case name (PascalCase) or a template containing
	// ${value} / ${value:CaseName} tokens.
	Transform string `yaml:"transform"`
}

// Gap is one source value with no matching target artifact.
type Gap struct {
	Value         string `json:"value"`
	SourceFile    string `json:"sourceFile"`
	SourceLine    int    `json:"sourceLine"`
	ExpectedIn    string `json:"expectedIn"`
	TargetPattern string `json:"targetPattern"`
}

// Result summarizes one coverage computation.
type Result struct {
	TotalSources    int     `json:"totalSources"`
	CoveredSources  int     `json:"coveredSources"`
	CoveragePercent float64 `json:"coveragePercent"`
	Gaps            []Gap   `json:"gaps"`
}

// ParseConfig decodes a require_coverage constraint payload.
func ParseConfig(value any) (Config, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return Config{}, fmt.Errorf("expected mapping payload, got %T", value)
	}
	cfg := Config{}
	fields := map[string]*string{
		"source_type":     &cfg.SourceType,
		"source_pattern":  &cfg.SourcePattern,
		"extract_values":  &cfg.ExtractValues,
		"in_files":        &cfg.InFiles,
		"target_pattern":  &cfg.TargetPattern,
		"in_target_files": &cfg.InTargetFiles,
		"transform":       &cfg.Transform,
	}
	for key, dst := range fields {
		if v, ok := m[key]; ok {
			s, ok := v.(string)
			if !ok {
				return Config{}, fmt.Errorf("%s must be a string, got %T", key, v)
			}
			*dst = s
		}
	}
	if cfg.SourceType == "" {
		return Config{}, fmt.Errorf("missing source_type field")
	}
	if cfg.TargetPattern == "" {
		return Config{}, fmt.Errorf("missing target_pattern field")
	}
	if cfg.InTargetFiles == "" {
		return Config{}, fmt.Errorf("missing in_target_files field")
	}
	return cfg, nil
}

// applyTransform renders the substitution value for a raw source value.
func applyTransform(transform, value string) string {
	if transform == "" {
		return value
	}
	if c, err := rules.ParseCase(transform); err == nil {
		return rules.Convert(c, value)
	}

	out := transform
	for _, c := range []rules.Case{rules.PascalCase, rules.CamelCase, rules.SnakeCase, rules.UpperCase, rules.KebabCase} {
		token := "${value:" + string(c) + "}"
		if strings.Contains(out, token) {
			out = strings.ReplaceAll(out, token, rules.Convert(c, value))
		}
	}
	return strings.ReplaceAll(out, "${value}", value)
}
