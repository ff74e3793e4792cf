package rules

import (
	"fmt"
	"regexp"
)

// PatternPayload is the decoded form of forbid_pattern / require_pattern.
// The short form is a bare regex string; the long form adds intent and
// example metadata used by reporters.
type PatternPayload struct {
	Pattern         string
	Scope           string // optional sub-region: "", "imports", "exports"
	Intent          string
	Examples        []string
	Counterexamples []string
}

// NamingPayload is the decoded form of naming_pattern.
type NamingPayload struct {
	Case      Case
	Prefix    string
	Suffix    string
	Extension string
	Scope     string // "file" (default) or "exports"
}

// LimitPayload is the decoded form of max_file_lines / max_public_methods.
type LimitPayload struct {
	Max             int
	ExcludeComments bool
}

// CallBeforePayload is the decoded form of require_call_before.
type CallBeforePayload struct {
	Call   string
	Before string
}

// TryCatchPayload is the decoded form of require_try_catch.
type TryCatchPayload struct {
	Around string
}

// DecodeSpecifiers decodes the payload of forbid_import / require_import:
// either one specifier string or a list of them.
func DecodeSpecifiers(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("empty module specifier")
		}
		return []string{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty specifier list")
		}
		specs := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("specifier %d is not a non-empty string", i)
			}
			specs = append(specs, s)
		}
		return specs, nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty specifier list")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("expected string or string list, got %T", value)
	}
}

// DecodePattern decodes the payload of forbid_pattern / require_pattern.
func DecodePattern(value any) (PatternPayload, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return PatternPayload{}, fmt.Errorf("empty pattern")
		}
		return PatternPayload{Pattern: v}, nil
	case map[string]any:
		p := PatternPayload{}
		var err error
		if p.Pattern, err = stringField(v, "pattern", true); err != nil {
			return PatternPayload{}, err
		}
		p.Scope, _ = stringField(v, "scope", false)
		p.Intent, _ = stringField(v, "intent", false)
		p.Examples = stringListField(v, "examples")
		p.Counterexamples = stringListField(v, "counterexamples")
		return p, nil
	default:
		return PatternPayload{}, fmt.Errorf("expected string or mapping, got %T", value)
	}
}

// DecodePatternList decodes the payload of require_one_of.
func DecodePatternList(value any) ([]string, error) {
	list, ok := value.([]any)
	if !ok {
		if ss, ok := value.([]string); ok && len(ss) > 0 {
			return ss, nil
		}
		return nil, fmt.Errorf("expected pattern list, got %T", value)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty pattern list")
	}
	patterns := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("pattern %d is not a non-empty string", i)
		}
		patterns = append(patterns, s)
	}
	return patterns, nil
}

// DecodeNaming decodes the payload of naming_pattern.
func DecodeNaming(value any) (NamingPayload, error) {
	switch v := value.(type) {
	case string:
		c, err := ParseCase(v)
		if err != nil {
			return NamingPayload{}, err
		}
		return NamingPayload{Case: c}, nil
	case map[string]any:
		p := NamingPayload{}
		caseName, err := stringField(v, "case", true)
		if err != nil {
			return NamingPayload{}, err
		}
		if p.Case, err = ParseCase(caseName); err != nil {
			return NamingPayload{}, err
		}
		p.Prefix, _ = stringField(v, "prefix", false)
		p.Suffix, _ = stringField(v, "suffix", false)
		p.Extension, _ = stringField(v, "extension", false)
		p.Scope, _ = stringField(v, "scope", false)
		return p, nil
	default:
		return NamingPayload{}, fmt.Errorf("expected case name or mapping, got %T", value)
	}
}

// DecodeLimit decodes the payload of max_file_lines / max_public_methods.
func DecodeLimit(value any) (LimitPayload, error) {
	switch v := value.(type) {
	case int:
		if v <= 0 {
			return LimitPayload{}, fmt.Errorf("threshold must be positive, got %d", v)
		}
		return LimitPayload{Max: v}, nil
	case map[string]any:
		p := LimitPayload{}
		max, ok := v["max"]
		if !ok {
			return LimitPayload{}, fmt.Errorf("missing max field")
		}
		n, ok := max.(int)
		if !ok || n <= 0 {
			return LimitPayload{}, fmt.Errorf("max must be a positive integer")
		}
		p.Max = n
		if ec, ok := v["exclude_comments"].(bool); ok {
			p.ExcludeComments = ec
		}
		return p, nil
	default:
		return LimitPayload{}, fmt.Errorf("expected integer or mapping, got %T", value)
	}
}

// DecodeCallBefore decodes the payload of require_call_before.
func DecodeCallBefore(value any) (CallBeforePayload, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return CallBeforePayload{}, fmt.Errorf("expected mapping, got %T", value)
	}
	p := CallBeforePayload{}
	var err error
	if p.Call, err = stringField(m, "call", true); err != nil {
		return CallBeforePayload{}, err
	}
	if p.Before, err = stringField(m, "before", true); err != nil {
		return CallBeforePayload{}, err
	}
	return p, nil
}

// DecodeTryCatch decodes the payload of require_try_catch.
func DecodeTryCatch(value any) (TryCatchPayload, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return TryCatchPayload{}, fmt.Errorf("empty around target")
		}
		return TryCatchPayload{Around: v}, nil
	case map[string]any:
		around, err := stringField(v, "around", true)
		if err != nil {
			return TryCatchPayload{}, err
		}
		return TryCatchPayload{Around: around}, nil
	default:
		return TryCatchPayload{}, fmt.Errorf("expected string or mapping, got %T", value)
	}
}

// DecodeName decodes a single-name payload (require_export, must_extend, implements).
func DecodeName(value any) (string, error) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("expected a non-empty name, got %T", value)
	}
	return s, nil
}

func validateSpecifierList(value any) error {
	_, err := DecodeSpecifiers(value)
	return err
}

func validatePattern(value any) error {
	p, err := DecodePattern(value)
	if err != nil {
		return err
	}
	if _, err := regexp.Compile(p.Pattern); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

func validatePatternList(value any) error {
	patterns, err := DecodePatternList(value)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func validateNaming(value any) error {
	_, err := DecodeNaming(value)
	return err
}

func validateLimit(value any) error {
	_, err := DecodeLimit(value)
	return err
}

func validateCallBefore(value any) error {
	_, err := DecodeCallBefore(value)
	return err
}

func validateTryCatch(value any) error {
	_, err := DecodeTryCatch(value)
	return err
}

func validateName(value any) error {
	_, err := DecodeName(value)
	return err
}

// validateCoverage checks the minimal shape of a require_coverage payload.
// Full decoding lives in the coverage package; the catalog only guards the
// fields every config must carry.
func validateCoverage(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected mapping, got %T", value)
	}
	for _, field := range []string{"source_type", "target_pattern", "in_target_files"} {
		if _, err := stringField(m, field, true); err != nil {
			return err
		}
	}
	return nil
}

func stringField(m map[string]any, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing %s field", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	if required && s == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}
	return s, nil
}

func stringListField(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
