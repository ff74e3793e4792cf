package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/rules"
)

func loadRegistry(t *testing.T, doc string) *registry.Registry {
	t.Helper()
	reg, err := registry.NewLoader(nil).Load([]byte(doc))
	require.NoError(t, err)
	return reg
}

const testDoc = `
version: "1.0"
architectures:
  base:
    description: shared baseline
    hints: [keep modules small]
    constraints:
      - rule: max_file_lines
        value: 400
  service:
    inherits: base
    constraints:
      - rule: require_test_file
  domain.payment:
    inherits: service
    description: payment handling
    mixins: [audited]
    expected_intents: [forbid_import]
    constraints:
      - rule: forbid_import
        value: [lodash]
mixins:
  audited:
    constraints:
      - rule: require_import
        value: [audit-log]
  tested:
    inline: allowed
    constraints:
      - rule: require_test_file
  registry-only:
    inline: forbidden
    constraints:
      - rule: max_file_lines
        value: 100
  inline-only:
    inline: only
    constraints:
      - rule: max_file_lines
        value: 100
`

func TestResolve_ChainAndOrder(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	flat, err := r.Resolve("domain.payment", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"base", "service", "domain.payment"}, flat.InheritanceChain)
	assert.Equal(t, []string{"audited"}, flat.AppliedMixins)
	assert.Equal(t, "payment handling", flat.Description)
	assert.Equal(t, "1.0", flat.Version)

	// Most general first, mixins after the declaring node.
	require.Len(t, flat.Constraints, 4)
	assert.Equal(t, rules.MaxFileLines, flat.Constraints[0].Rule)
	assert.Equal(t, "base", flat.Constraints[0].Origin)
	assert.Equal(t, rules.RequireTestFile, flat.Constraints[1].Rule)
	assert.Equal(t, "service", flat.Constraints[1].Origin)
	assert.Equal(t, rules.ForbidImport, flat.Constraints[2].Rule)
	assert.Equal(t, "domain.payment", flat.Constraints[2].Origin)
	assert.False(t, flat.Constraints[2].FromMixin)
	assert.Equal(t, rules.RequireImport, flat.Constraints[3].Rule)
	assert.Equal(t, "audited", flat.Constraints[3].Origin)
	assert.True(t, flat.Constraints[3].FromMixin)

	require.Len(t, flat.Hints, 1)
	assert.Equal(t, "base", flat.Hints[0].Origin)
}

func TestResolve_StrictlyAdditive(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	parent, err := r.Resolve("service", nil)
	require.NoError(t, err)
	child, err := r.Resolve("domain.payment", nil)
	require.NoError(t, err)

	// Every parent constraint survives in the child, same rule and origin.
	for _, pc := range parent.Constraints {
		found := false
		for _, cc := range child.Constraints {
			if cc.Rule == pc.Rule && cc.Origin == pc.Origin {
				found = true
				break
			}
		}
		assert.True(t, found, "parent constraint %s from %s missing in child", pc.Rule, pc.Origin)
	}
}

func TestResolve_InlineMixinsLast(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	flat, err := r.Resolve("domain.payment", []string{"tested"})
	require.NoError(t, err)
	assert.Equal(t, []string{"audited", "tested"}, flat.AppliedMixins)
	last := flat.Constraints[len(flat.Constraints)-1]
	assert.Equal(t, "tested", last.Origin)
	assert.True(t, last.FromMixin)
}

func TestResolve_Deterministic(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	a, err := r.Resolve("domain.payment", []string{"tested"})
	require.NoError(t, err)
	// Tag order on the file never changes the result or splits the cache.
	b, err := r.Resolve("domain.payment", []string{"tested"})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestResolve_UnknownArchitecture(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	_, err := r.Resolve("domain.refund", nil)
	var unknownErr *UnknownArchitectureError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "domain.refund", unknownErr.ID)
}

func TestResolve_UnknownMixin(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	_, err := r.Resolve("domain.payment", []string{"nonexistent"})
	var unknownErr *UnknownMixinError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "nonexistent", unknownErr.ID)
	assert.Equal(t, "inline", unknownErr.Via)
}

func TestResolve_Cycle(t *testing.T) {
	reg := loadRegistry(t, `
architectures:
  a:
    inherits: b
  b:
    inherits: a
`)
	r := New(reg)

	_, err := r.Resolve("a", nil)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Chain)

	// The failure is never cached; the same call fails identically.
	_, err = r.Resolve("a", nil)
	require.ErrorAs(t, err, &cycleErr)
}

func TestResolve_SelfCycle(t *testing.T) {
	reg := loadRegistry(t, `
architectures:
  a:
    inherits: a
`)
	_, err := New(reg).Resolve("a", nil)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestResolve_InlineOnlyRejectedInRegistry(t *testing.T) {
	reg := loadRegistry(t, `
architectures:
  svc:
    mixins: [inline-only]
mixins:
  inline-only:
    inline: only
`)
	_, err := New(reg).Resolve("svc", nil)
	var modeErr *InlineModeViolationError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, "inline-only", modeErr.Mixin)
	assert.Equal(t, "svc", modeErr.Via)
}

func TestResolve_InlineForbiddenRejectedInline(t *testing.T) {
	r := New(loadRegistry(t, testDoc))

	_, err := r.Resolve("domain.payment", []string{"registry-only"})
	var modeErr *InlineModeViolationError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, "registry-only", modeErr.Mixin)
}

func TestResolve_MixinContributesOnce(t *testing.T) {
	reg := loadRegistry(t, `
architectures:
  parent:
    mixins: [audited]
  child:
    inherits: parent
    mixins: [audited]
mixins:
  audited:
    constraints:
      - rule: require_import
        value: [audit-log]
`)
	flat, err := New(reg).Resolve("child", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"audited"}, flat.AppliedMixins)
	require.Len(t, flat.Constraints, 1)
}

func TestResolve_BrokenArchitectureFailsWithConfigError(t *testing.T) {
	reg := loadRegistry(t, `
architectures:
  broken:
    constraints:
      - rule: forbid_pattern
        value: "([unclosed"
`)
	_, err := New(reg).Resolve("broken", nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "broken", cfgErr.ID)
}

func TestResolve_DescriptiveLeafFirstFallback(t *testing.T) {
	reg := loadRegistry(t, `
architectures:
  base:
    description: baseline
    file_pattern: "**/*.go"
  leaf:
    inherits: base
    description: leaf wins
`)
	flat, err := New(reg).Resolve("leaf", nil)
	require.NoError(t, err)
	assert.Equal(t, "leaf wins", flat.Description)
	assert.Equal(t, "**/*.go", flat.FilePattern)
}

func TestExpectsIntent(t *testing.T) {
	r := New(loadRegistry(t, testDoc))
	flat, err := r.Resolve("domain.payment", nil)
	require.NoError(t, err)
	assert.True(t, flat.ExpectsIntent("forbid_import"))
	assert.False(t, flat.ExpectsIntent("require_test_file"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "svc", cacheKey("svc", nil))
	assert.Equal(t, "svc+a,b", cacheKey("svc", []string{"b", "a"}))
}
