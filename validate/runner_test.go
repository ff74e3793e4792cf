package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/rules"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const registryDoc = `
version: "1.0"
architectures:
  base:
    constraints:
      - rule: max_file_lines
        value: 400
  domain.payment:
    inherits: base
    mixins: [tested]
    constraints:
      - rule: forbid_import
        value: [lodash]
        why: bundle size
        alternative: native helpers
mixins:
  tested:
    constraints:
      - rule: require_test_file
  strict-imports:
    constraints:
      - rule: forbid_import
        value: [moment]
        severity: warning
`

func newTestRunner(t *testing.T, root string) *Runner {
	t.Helper()
	reg, err := registry.NewLoader(nil).Load([]byte(registryDoc))
	require.NoError(t, err)
	return NewRunner(root, reg, Options{Now: func() time.Time { return fixedNow }})
}

func writeSource(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateSource_TwoViolationsWithProvenance(t *testing.T) {
	root := t.TempDir()
	r := newTestRunner(t, root)

	src := []byte(`// @arch domain.payment
import merge from 'lodash/merge';

export function charge() {}
`)
	res := r.ValidateSource(context.Background(), filepath.Join(root, "charge.ts"), src)
	require.NotNil(t, res)

	assert.Equal(t, "charge.ts", res.Path)
	assert.Equal(t, "domain.payment", res.ArchID)
	require.Len(t, res.Violations, 2)

	byRule := make(map[rules.Kind]Violation)
	for _, v := range res.Violations {
		byRule[v.Rule] = v
	}

	fi := byRule[rules.ForbidImport]
	assert.Equal(t, "domain.payment", fi.Origin)
	assert.False(t, fi.FromMixin)
	assert.Equal(t, "lodash", fi.Value)
	assert.Equal(t, "bundle size", fi.Why)
	assert.Equal(t, "native helpers", fi.Alternative)

	tf := byRule[rules.RequireTestFile]
	assert.Equal(t, "tested", tf.Origin)
	assert.True(t, tf.FromMixin)

	assert.False(t, res.Passed)
	assert.True(t, res.Failed(false))
}

func TestValidateSource_UntaggedIsNil(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	res := r.ValidateSource(context.Background(), "plain.ts", []byte("const x = 1;\n"))
	assert.Nil(t, res)
}

func TestValidateSource_OverrideSuppresses(t *testing.T) {
	root := t.TempDir()
	r := newTestRunner(t, root)
	writeSource(t, root, "charge.test.ts", "// companion\n")

	src := []byte(`// @arch domain.payment
// @override forbid_import:lodash
// @reason migration tracked in PAY-9
// @expires 2025-08-01
import merge from 'lodash/merge';
`)
	res := r.ValidateSource(context.Background(), filepath.Join(root, "charge.ts"), src)
	require.NotNil(t, res)

	assert.Empty(t, res.Violations)
	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, rules.ForbidImport, res.Suppressed[0].Violation.Rule)
	assert.Equal(t, "migration tracked in PAY-9", res.Suppressed[0].Override.Reason)
	assert.True(t, res.Passed)
}

func TestValidateSource_ExpiredOverrideDoesNotSuppress(t *testing.T) {
	root := t.TempDir()
	r := newTestRunner(t, root)
	writeSource(t, root, "charge.test.ts", "// companion\n")

	src := []byte(`// @arch domain.payment
// @override forbid_import:lodash
// @reason stale
// @expires 2025-01-01
import merge from 'lodash';
`)
	res := r.ValidateSource(context.Background(), filepath.Join(root, "charge.ts"), src)
	require.NotNil(t, res)

	require.Len(t, res.Violations, 1)
	assert.Equal(t, rules.ForbidImport, res.Violations[0].Rule)

	// The invalid override's problem is reported alongside.
	found := false
	for _, w := range res.Warnings {
		if w.Rule == rules.ForbidImport {
			assert.Contains(t, w.Message, "expired")
			found = true
		}
	}
	assert.True(t, found)
	assert.False(t, res.Passed)
}

func TestValidateSource_ResolutionFailureIsUnsuppressable(t *testing.T) {
	root := t.TempDir()
	r := newTestRunner(t, root)

	src := []byte(`// @arch domain.refund
// @override architecture_resolution
// @reason should not work
const x = 1;
`)
	res := r.ValidateSource(context.Background(), filepath.Join(root, "refund.ts"), src)
	require.NotNil(t, res)

	require.Len(t, res.Violations, 1)
	assert.Equal(t, ResolutionRule, res.Violations[0].Rule)
	assert.Equal(t, registry.SeverityError, res.Violations[0].Severity)
	assert.Empty(t, res.Suppressed)
	assert.False(t, res.Passed)
}

func TestValidateSource_InlineMixinAddsConstraints(t *testing.T) {
	root := t.TempDir()
	r := newTestRunner(t, root)
	writeSource(t, root, "charge.test.ts", "// companion\n")

	src := []byte(`// @arch domain.payment +strict-imports
import moment from 'moment';
`)
	res := r.ValidateSource(context.Background(), filepath.Join(root, "charge.ts"), src)
	require.NotNil(t, res)
	assert.Equal(t, []string{"strict-imports"}, res.InlineMixins)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, "strict-imports", v.Origin)
	assert.Equal(t, registry.SeverityWarning, v.Severity)

	// A warning-severity violation fails only in strict mode.
	assert.True(t, res.Passed)
	assert.False(t, res.Failed(false))
	assert.True(t, res.Failed(true))
}

func TestValidatePaths_BatchAcrossFiles(t *testing.T) {
	root := t.TempDir()
	r := newTestRunner(t, root)

	writeSource(t, root, "src/ok.ts", `// @arch base
const x = 1;
`)
	writeSource(t, root, "src/bad.ts", `// @arch domain.payment
import merge from 'lodash';
`)
	writeSource(t, root, "src/untagged.ts", "const y = 2;\n")

	batch, err := r.ValidatePaths(context.Background(), []string{"src/**/*.ts"})
	require.NoError(t, err)

	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, 1, batch.Skipped)
	require.Len(t, batch.Results, 2)

	// Path-sorted results.
	assert.Equal(t, "src/bad.ts", batch.Results[0].Path)
	assert.Equal(t, "src/ok.ts", batch.Results[1].Path)
	assert.True(t, batch.Failed(false))
}

func TestValidateFile_ReadError(t *testing.T) {
	r := newTestRunner(t, t.TempDir())
	_, err := r.ValidateFile(context.Background(), "/nonexistent/file.ts")
	assert.Error(t, err)
}

func TestResultFailed_Strict(t *testing.T) {
	res := &Result{Violations: []Violation{{Severity: registry.SeverityWarning}}}
	assert.False(t, res.Failed(false))
	assert.True(t, res.Failed(true))

	res = &Result{}
	assert.False(t, res.Failed(true))
}
