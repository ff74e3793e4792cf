// Package evaluate checks one resolved constraint against a file's fact
// bundle. Evaluation is synchronous and side-effect-free except for the
// coverage kind, which reads its own source and target file sets. A broken
// constraint (bad regex, malformed payload, unknown gate) is isolated: it
// becomes a skipped verdict with a reason, and every other constraint still
// evaluates.
package evaluate

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/archlint/coverage"
	"github.com/c360studio/archlint/facts"
	"github.com/c360studio/archlint/resolver"
	"github.com/c360studio/archlint/rules"
)

// Evaluator evaluates constraints. The coverage analyzer is the only
// collaborator because require_coverage is the only kind that touches the
// filesystem.
type Evaluator struct {
	coverage *coverage.Analyzer
}

// New creates an evaluator delegating require_coverage to cov.
func New(cov *coverage.Analyzer) *Evaluator {
	return &Evaluator{coverage: cov}
}

// Evaluate checks the constraint at index i of the flattened architecture
// against the fact bundle and the file's declared intents.
func (e *Evaluator) Evaluate(ctx context.Context, fa *resolver.FlattenedArchitecture, i int, b *facts.Bundle, declaredIntents []string) Verdict {
	if i < 0 || i >= len(fa.Constraints) {
		return skipped(fmt.Sprintf("constraint index %d out of range", i))
	}
	c := fa.Constraints[i]

	// Gating first: when/applies_when must hold for the rule to apply,
	// unless holding satisfies it trivially.
	for _, gate := range []string{c.AppliesWhen, c.When} {
		if gate == "" {
			continue
		}
		holds, err := evalCondition(gate, b)
		if err != nil {
			return skipped(fmt.Sprintf("condition %q: %v", gate, err))
		}
		if !holds {
			return skipped(fmt.Sprintf("condition %q does not apply", gate))
		}
	}
	if c.Unless != "" {
		holds, err := evalCondition(c.Unless, b)
		if err != nil {
			return skipped(fmt.Sprintf("condition %q: %v", c.Unless, err))
		}
		if holds {
			return pass()
		}
	}

	// The intentional-exception channel: a declared @intent matching an
	// expected or suggested intent for this rule satisfies the constraint
	// permanently, with no expiry or reason required.
	if fa.ExpectsIntent(string(c.Rule)) && contains(declaredIntents, string(c.Rule)) {
		return passByIntent()
	}

	switch c.Rule {
	case rules.ForbidImport:
		return e.forbidImport(c, b)
	case rules.RequireImport:
		return e.requireImport(c, b)
	case rules.ForbidPattern:
		return e.forbidPattern(fa, i, b)
	case rules.RequirePattern:
		return e.requirePattern(fa, i, b)
	case rules.RequireOneOf:
		return e.requireOneOf(c, b)
	case rules.NamingPattern:
		return e.namingPattern(c, b)
	case rules.MaxFileLines:
		return e.maxFileLines(c, b)
	case rules.MaxPublicMethods:
		return e.maxPublicMethods(c, b)
	case rules.RequireCallBefore:
		return e.requireCallBefore(c, b)
	case rules.RequireTryCatch:
		return e.requireTryCatch(c, b)
	case rules.RequireTestFile:
		return e.requireTestFile(b)
	case rules.RequireExport:
		return e.requireExport(c, b)
	case rules.MustExtend:
		return e.mustExtend(c, b)
	case rules.Implements:
		return e.implementsRule(c, b)
	case rules.RequireCoverage:
		return e.requireCoverage(ctx, c)
	default:
		return skipped(fmt.Sprintf("unknown rule kind: %s", c.Rule))
	}
}

func (e *Evaluator) forbidImport(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	specs, err := rules.DecodeSpecifiers(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	for _, spec := range specs {
		for _, imp := range b.Imports {
			if specifierMatches(spec, imp) {
				return violation(fmt.Sprintf("imports forbidden module %q (matched %q)", imp, spec), spec)
			}
		}
	}
	return pass()
}

func (e *Evaluator) requireImport(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	specs, err := rules.DecodeSpecifiers(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	for _, spec := range specs {
		found := false
		for _, imp := range b.Imports {
			if specifierMatches(spec, imp) {
				found = true
				break
			}
		}
		if !found {
			return violation(fmt.Sprintf("missing required import %q", spec), spec)
		}
	}
	return pass()
}

func (e *Evaluator) forbidPattern(fa *resolver.FlattenedArchitecture, i int, b *facts.Bundle) Verdict {
	re, err := fa.CompiledPattern(i)
	if err != nil {
		return skipped(fmt.Sprintf("pattern: %v", err))
	}
	payload, err := rules.DecodePattern(fa.Constraints[i].Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	region := patternRegion(payload.Scope, b)
	if loc := re.FindString(region); loc != "" {
		return violation(fmt.Sprintf("matches forbidden pattern %q: %q", payload.Pattern, truncate(loc, 80)), payload.Pattern)
	}
	return pass()
}

func (e *Evaluator) requirePattern(fa *resolver.FlattenedArchitecture, i int, b *facts.Bundle) Verdict {
	re, err := fa.CompiledPattern(i)
	if err != nil {
		return skipped(fmt.Sprintf("pattern: %v", err))
	}
	payload, err := rules.DecodePattern(fa.Constraints[i].Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	if !re.MatchString(patternRegion(payload.Scope, b)) {
		return violation(fmt.Sprintf("missing required pattern %q", payload.Pattern), payload.Pattern)
	}
	return pass()
}

func (e *Evaluator) requireOneOf(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	patterns, err := rules.DecodePatternList(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	compiled := 0
	for _, p := range patterns {
		re, err := compileCached(p)
		if err != nil {
			continue
		}
		compiled++
		if re.MatchString(b.Text) {
			return pass()
		}
	}
	if compiled == 0 {
		return skipped("no candidate pattern compiled")
	}
	return violation(fmt.Sprintf("none of the candidate patterns matched: %s", strings.Join(patterns, ", ")), "")
}

func (e *Evaluator) namingPattern(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	payload, err := rules.DecodeNaming(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}

	if payload.Scope == "exports" {
		for _, name := range b.Exports {
			if msg := checkName(payload, name); msg != "" {
				return violation(fmt.Sprintf("export %q %s", name, msg), name)
			}
		}
		return pass()
	}

	base := fileBase(b.Path)
	if payload.Extension != "" && !strings.HasSuffix(b.Path, payload.Extension) {
		return violation(fmt.Sprintf("file %q must have extension %q", b.Path, payload.Extension), base)
	}
	if msg := checkName(payload, base); msg != "" {
		return violation(fmt.Sprintf("file name %q %s", base, msg), base)
	}
	return pass()
}

func (e *Evaluator) maxFileLines(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	payload, err := rules.DecodeLimit(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	count := b.TotalLines
	basis := "lines"
	if payload.ExcludeComments {
		count = b.CodeLines
		basis = "code lines"
	}
	if count > payload.Max {
		return violation(fmt.Sprintf("file has %d %s, maximum is %d", count, basis, payload.Max), "")
	}
	return pass()
}

func (e *Evaluator) maxPublicMethods(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	payload, err := rules.DecodeLimit(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	if b.PublicMethods > payload.Max {
		return violation(fmt.Sprintf("file has %d public methods, maximum is %d", b.PublicMethods, payload.Max), "")
	}
	return pass()
}

func (e *Evaluator) requireCallBefore(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	payload, err := rules.DecodeCallBefore(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	anchorLine := -1
	for _, call := range b.Calls {
		if callMatches(payload.Before, call.Name) {
			anchorLine = call.Line
			break
		}
	}
	// No anchor, nothing to order against.
	if anchorLine < 0 {
		return pass()
	}
	for _, call := range b.Calls {
		if callMatches(payload.Call, call.Name) && call.Line <= anchorLine {
			return pass()
		}
	}
	return violation(fmt.Sprintf("%q must be called before %q", payload.Call, payload.Before), payload.Call)
}

func (e *Evaluator) requireTryCatch(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	payload, err := rules.DecodeTryCatch(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	found := false
	for _, call := range b.Calls {
		if callMatches(payload.Around, call.Name) {
			found = true
			break
		}
	}
	if !found {
		return pass()
	}
	if !b.CallHandled(payload.Around) {
		return violation(fmt.Sprintf("%q must be wrapped in error handling", payload.Around), payload.Around)
	}
	return pass()
}

func (e *Evaluator) requireTestFile(b *facts.Bundle) Verdict {
	if !b.HasTestCompanion {
		return violation(fmt.Sprintf("no companion test file for %q", b.Path), "")
	}
	return pass()
}

func (e *Evaluator) requireExport(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	name, err := rules.DecodeName(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	if !b.HasExport(name) {
		return violation(fmt.Sprintf("missing required export %q", name), name)
	}
	return pass()
}

func (e *Evaluator) mustExtend(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	name, err := rules.DecodeName(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	for _, d := range b.Declarations {
		if contains(d.Extends, name) {
			return pass()
		}
	}
	return violation(fmt.Sprintf("no declaration extends %q", name), name)
}

func (e *Evaluator) implementsRule(c resolver.ResolvedConstraint, b *facts.Bundle) Verdict {
	name, err := rules.DecodeName(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	for _, d := range b.Declarations {
		// Go declares implementation structurally; embedded types stand in
		// for an implements clause.
		if contains(d.Implements, name) || contains(d.Extends, name) {
			return pass()
		}
	}
	return violation(fmt.Sprintf("no declaration implements %q", name), name)
}

func (e *Evaluator) requireCoverage(ctx context.Context, c resolver.ResolvedConstraint) Verdict {
	cfg, err := coverage.ParseConfig(c.Value)
	if err != nil {
		return skipped(fmt.Sprintf("payload: %v", err))
	}
	result, err := e.coverage.Compute(ctx, cfg)
	if err != nil {
		return skipped(fmt.Sprintf("coverage: %v", err))
	}
	if len(result.Gaps) == 0 {
		return pass()
	}
	values := make([]string, 0, len(result.Gaps))
	for _, gap := range result.Gaps {
		values = append(values, gap.Value)
	}
	return violation(fmt.Sprintf("coverage %.0f%% (%d/%d): missing %s in %s",
		result.CoveragePercent, result.CoveredSources, result.TotalSources,
		strings.Join(values, ", "), cfg.InTargetFiles), "")
}

// patternRegion selects the text a pattern rule runs against.
func patternRegion(scope string, b *facts.Bundle) string {
	switch scope {
	case "imports":
		return strings.Join(b.Imports, "\n")
	case "exports":
		return strings.Join(b.Exports, "\n")
	default:
		return b.Text
	}
}

// checkName validates one name against a naming payload, returning an empty
// string on success or a description of the failure.
func checkName(p rules.NamingPayload, name string) string {
	trimmed := name
	if p.Prefix != "" {
		if !strings.HasPrefix(trimmed, p.Prefix) {
			return fmt.Sprintf("must start with %q", p.Prefix)
		}
		trimmed = strings.TrimPrefix(trimmed, p.Prefix)
	}
	if p.Suffix != "" {
		if !strings.HasSuffix(trimmed, p.Suffix) {
			return fmt.Sprintf("must end with %q", p.Suffix)
		}
		trimmed = strings.TrimSuffix(trimmed, p.Suffix)
	}
	if !rules.Matches(p.Case, trimmed) {
		return fmt.Sprintf("must be %s", p.Case)
	}
	return ""
}

// callMatches compares a rule's call name to a recorded call site, accepting
// qualified forms like obj.save for a target of save.
func callMatches(target, call string) bool {
	return call == target || strings.HasSuffix(call, "."+target)
}

func fileBase(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.IndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
