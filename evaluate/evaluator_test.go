package evaluate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archlint/coverage"
	"github.com/c360studio/archlint/facts"
	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/resolver"
)

// flatten builds a flattened architecture from a registry document with a
// single architecture named svc.
func flatten(t *testing.T, doc string) *resolver.FlattenedArchitecture {
	t.Helper()
	reg, err := registry.NewLoader(nil).Load([]byte(doc))
	require.NoError(t, err)
	flat, err := resolver.New(reg).Resolve("svc", nil)
	require.NoError(t, err)
	return flat
}

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return New(coverage.NewAnalyzer(t.TempDir(), coverage.Options{}))
}

func evalFirst(t *testing.T, doc string, b *facts.Bundle, intents ...string) Verdict {
	t.Helper()
	flat := flatten(t, doc)
	require.NotEmpty(t, flat.Constraints)
	return newEvaluator(t).Evaluate(context.Background(), flat, 0, b, intents)
}

func TestEvaluate_ForbidImport(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: forbid_import
        value: [lodash]
`
	v := evalFirst(t, doc, &facts.Bundle{Imports: []string{"react", "lodash/merge"}})
	assert.Equal(t, StatusViolation, v.Status)
	assert.Equal(t, "lodash", v.Value)
	assert.Contains(t, v.Message, "lodash/merge")

	v = evalFirst(t, doc, &facts.Bundle{Imports: []string{"react"}})
	assert.Equal(t, StatusPass, v.Status)
}

func TestEvaluate_RequireImport(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_import
        value: [audit-log]
`
	v := evalFirst(t, doc, &facts.Bundle{Imports: []string{"react"}})
	assert.Equal(t, StatusViolation, v.Status)
	assert.Equal(t, "audit-log", v.Value)

	v = evalFirst(t, doc, &facts.Bundle{Imports: []string{"audit-log"}})
	assert.Equal(t, StatusPass, v.Status)
}

func TestEvaluate_ForbidPattern(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: forbid_pattern
        value: console\.log
`
	v := evalFirst(t, doc, &facts.Bundle{Text: "debug();\nconsole.log('x');\n"})
	assert.Equal(t, StatusViolation, v.Status)

	v = evalFirst(t, doc, &facts.Bundle{Text: "debug();\n"})
	assert.Equal(t, StatusPass, v.Status)
}

func TestEvaluate_RequirePatternScopedToImports(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_pattern
        value:
          pattern: "^@company/"
          scope: imports
`
	v := evalFirst(t, doc, &facts.Bundle{
		Imports: []string{"@company/core"},
		Text:    "unrelated",
	})
	assert.Equal(t, StatusPass, v.Status)

	v = evalFirst(t, doc, &facts.Bundle{Imports: []string{"react"}, Text: "@company/core"})
	assert.Equal(t, StatusViolation, v.Status)
}

func TestEvaluate_RequireOneOf(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_one_of
        value: ["describe\\(", "it\\("]
`
	v := evalFirst(t, doc, &facts.Bundle{Text: "it('works', fn);"})
	assert.Equal(t, StatusPass, v.Status)

	v = evalFirst(t, doc, &facts.Bundle{Text: "nothing here"})
	assert.Equal(t, StatusViolation, v.Status)
}

func TestEvaluate_NamingPattern_File(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: naming_pattern
        value:
          case: kebab-case
          suffix: -service
`
	v := evalFirst(t, doc, &facts.Bundle{Path: "src/payment-service.ts"})
	assert.Equal(t, StatusPass, v.Status)

	v = evalFirst(t, doc, &facts.Bundle{Path: "src/PaymentService.ts"})
	assert.Equal(t, StatusViolation, v.Status)
}

func TestEvaluate_NamingPattern_Exports(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: naming_pattern
        value:
          case: PascalCase
          scope: exports
`
	v := evalFirst(t, doc, &facts.Bundle{Exports: []string{"PaymentService", "helperThing"}})
	assert.Equal(t, StatusViolation, v.Status)
	assert.Equal(t, "helperThing", v.Value)

	v = evalFirst(t, doc, &facts.Bundle{Exports: []string{"PaymentService"}})
	assert.Equal(t, StatusPass, v.Status)
}

func TestEvaluate_MaxFileLines(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: max_file_lines
        value:
          max: 10
          exclude_comments: true
`
	v := evalFirst(t, doc, &facts.Bundle{TotalLines: 50, CodeLines: 8})
	assert.Equal(t, StatusPass, v.Status)

	v = evalFirst(t, doc, &facts.Bundle{TotalLines: 50, CodeLines: 12})
	assert.Equal(t, StatusViolation, v.Status)
	assert.Contains(t, v.Message, "12 code lines")
}

func TestEvaluate_MaxPublicMethods(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: max_public_methods
        value: 2
`
	v := evalFirst(t, doc, &facts.Bundle{PublicMethods: 3})
	assert.Equal(t, StatusViolation, v.Status)

	v = evalFirst(t, doc, &facts.Bundle{PublicMethods: 2})
	assert.Equal(t, StatusPass, v.Status)
}

func TestEvaluate_RequireCallBefore(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_call_before
        value:
          call: validate
          before: save
`
	ordered := &facts.Bundle{Calls: []facts.CallSite{
		{Name: "validate", Line: 3},
		{Name: "repo.save", Line: 5},
	}}
	assert.Equal(t, StatusPass, evalFirst(t, doc, ordered).Status)

	reversed := &facts.Bundle{Calls: []facts.CallSite{
		{Name: "repo.save", Line: 3},
		{Name: "validate", Line: 5},
	}}
	v := evalFirst(t, doc, reversed)
	assert.Equal(t, StatusViolation, v.Status)
	assert.Equal(t, "validate", v.Value)

	// No save call at all: nothing to order against.
	noAnchor := &facts.Bundle{Calls: []facts.CallSite{{Name: "validate", Line: 1}}}
	assert.Equal(t, StatusPass, evalFirst(t, doc, noAnchor).Status)
}

func TestEvaluate_RequireTryCatch(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_try_catch
        value: fetch
`
	unhandled := &facts.Bundle{Calls: []facts.CallSite{{Name: "fetch", Line: 2}}}
	assert.Equal(t, StatusViolation, evalFirst(t, doc, unhandled).Status)

	handled := &facts.Bundle{
		Calls:        []facts.CallSite{{Name: "fetch", Line: 2}},
		HandledCalls: []string{"fetch"},
	}
	assert.Equal(t, StatusPass, evalFirst(t, doc, handled).Status)

	absent := &facts.Bundle{Calls: []facts.CallSite{{Name: "render", Line: 2}}}
	assert.Equal(t, StatusPass, evalFirst(t, doc, absent).Status)
}

func TestEvaluate_RequireTestFile(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_test_file
`
	assert.Equal(t, StatusViolation, evalFirst(t, doc, &facts.Bundle{Path: "svc.go"}).Status)
	assert.Equal(t, StatusPass, evalFirst(t, doc, &facts.Bundle{Path: "svc.go", HasTestCompanion: true}).Status)
}

func TestEvaluate_StructuralRules(t *testing.T) {
	b := &facts.Bundle{
		Exports: []string{"Handler"},
		Declarations: []facts.Declaration{
			{Name: "PaymentHandler", Kind: "class", Extends: []string{"BaseHandler"}, Implements: []string{"Billable"}},
		},
	}

	assert.Equal(t, StatusPass, evalFirst(t, `
architectures:
  svc:
    constraints:
      - rule: require_export
        value: Handler
`, b).Status)

	assert.Equal(t, StatusPass, evalFirst(t, `
architectures:
  svc:
    constraints:
      - rule: must_extend
        value: BaseHandler
`, b).Status)

	assert.Equal(t, StatusViolation, evalFirst(t, `
architectures:
  svc:
    constraints:
      - rule: must_extend
        value: OtherBase
`, b).Status)

	assert.Equal(t, StatusPass, evalFirst(t, `
architectures:
  svc:
    constraints:
      - rule: implements
        value: Billable
`, b).Status)

	// Embedded types satisfy implements structurally.
	assert.Equal(t, StatusPass, evalFirst(t, `
architectures:
  svc:
    constraints:
      - rule: implements
        value: BaseHandler
`, b).Status)
}

func TestEvaluate_Gating(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: forbid_pattern
        value: console\.log
        applies_when: "has_import:react"
`
	withReact := &facts.Bundle{Imports: []string{"react"}, Text: "console.log('x')"}
	assert.Equal(t, StatusViolation, evalFirst(t, doc, withReact).Status)

	without := &facts.Bundle{Imports: []string{"vue"}, Text: "console.log('x')"}
	v := evalFirst(t, doc, without)
	assert.Equal(t, StatusSkipped, v.Status)
	assert.Contains(t, v.Reason, "does not apply")
}

func TestEvaluate_UnlessSatisfiesTrivially(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: forbid_pattern
        value: console\.log
        unless: "file_name:*.spec.ts"
`
	spec := &facts.Bundle{Path: "src/a.spec.ts", Text: "console.log('x')"}
	assert.Equal(t, StatusPass, evalFirst(t, doc, spec).Status)

	regular := &facts.Bundle{Path: "src/a.ts", Text: "console.log('x')"}
	assert.Equal(t, StatusViolation, evalFirst(t, doc, regular).Status)
}

func TestEvaluate_UnknownGateSkipsWithReason(t *testing.T) {
	doc := `
architectures:
  svc:
    constraints:
      - rule: require_test_file
        when: "moon_phase:full"
`
	v := evalFirst(t, doc, &facts.Bundle{})
	assert.Equal(t, StatusSkipped, v.Status)
	assert.Contains(t, v.Reason, "moon_phase")
}

func TestEvaluate_IntentSatisfiesExpectedRule(t *testing.T) {
	doc := `
architectures:
  svc:
    expected_intents: [require_test_file]
    constraints:
      - rule: require_test_file
`
	v := evalFirst(t, doc, &facts.Bundle{Path: "svc.go"}, "require_test_file")
	assert.Equal(t, StatusPass, v.Status)
	assert.True(t, v.ByIntent)

	// An intent for a rule the architecture does not expect changes nothing.
	doc = `
architectures:
  svc:
    constraints:
      - rule: require_test_file
`
	v = evalFirst(t, doc, &facts.Bundle{Path: "svc.go"}, "require_test_file")
	assert.Equal(t, StatusViolation, v.Status)
}

func TestEvaluate_UnknownRuleKindSkips(t *testing.T) {
	// Unknown kinds cannot come through the loader; build the flattened form
	// directly to exercise the evaluator's own guard.
	flat := flatten(t, `
architectures:
  svc:
    constraints:
      - rule: require_test_file
`)
	flat.Constraints[0].Rule = "forbid_fun"
	v := newEvaluator(t).Evaluate(context.Background(), flat, 0, &facts.Bundle{}, nil)
	assert.Equal(t, StatusSkipped, v.Status)
	assert.Contains(t, v.Reason, "unknown rule kind")
}

func TestEvaluate_IndexOutOfRange(t *testing.T) {
	flat := flatten(t, `
architectures:
  svc:
    constraints:
      - rule: require_test_file
`)
	v := newEvaluator(t).Evaluate(context.Background(), flat, 5, &facts.Bundle{}, nil)
	assert.Equal(t, StatusSkipped, v.Status)
}

func TestEvaluate_RequireCoverage(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "src/types.ts", "export type Kind = 'a' | 'b';\n")
	writeTestFile(t, root, "src/handlers.ts", "case 'a': break;\n")

	flat := flatten(t, `
architectures:
  svc:
    constraints:
      - rule: require_coverage
        value:
          source_type: union_members
          source_pattern: Kind
          in_files: src/types.ts
          target_pattern: "case '${value}':"
          in_target_files: src/handlers.ts
`)
	e := New(coverage.NewAnalyzer(root, coverage.Options{}))
	v := e.Evaluate(context.Background(), flat, 0, &facts.Bundle{}, nil)
	assert.Equal(t, StatusViolation, v.Status)
	assert.Contains(t, v.Message, "missing b")
}

func TestSpecifierMatches(t *testing.T) {
	assert.True(t, specifierMatches("lodash", "lodash"))
	assert.True(t, specifierMatches("lodash", "lodash/merge"))
	assert.False(t, specifierMatches("lodash", "lodash-es"))
	assert.True(t, specifierMatches("@company/*", "@company/core"))
	assert.False(t, specifierMatches("@company/*", "@other/core"))
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
