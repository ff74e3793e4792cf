// Package resolver turns an architecture id plus optional inline mixins into
// a flattened, ordered, provenance-tagged rule set. Resolution is a pure
// function of the immutable registry, so results are cached; a cache miss
// recomputation is idempotent, which makes a lock-free insert-if-absent map
// sufficient.
package resolver

import (
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/archlint/registry"
)

// Resolver resolves architecture ids against one registry handle.
type Resolver struct {
	reg   *registry.Registry
	cache sync.Map // cache key → *FlattenedArchitecture
}

// New creates a resolver over the given registry.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Resolve flattens archID plus the file's inline +mixin tags. Errors are
// terminal for this call only: they are never cached and never affect other
// resolutions.
func (r *Resolver) Resolve(archID string, inlineMixins []string) (*FlattenedArchitecture, error) {
	key := cacheKey(archID, inlineMixins)
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*FlattenedArchitecture), nil
	}

	flat, err := r.resolve(archID, inlineMixins)
	if err != nil {
		return nil, err
	}

	// First writer wins; concurrent recomputation yields an identical value.
	actual, _ := r.cache.LoadOrStore(key, flat)
	return actual.(*FlattenedArchitecture), nil
}

func (r *Resolver) resolve(archID string, inlineMixins []string) (*FlattenedArchitecture, error) {
	chain, err := r.inheritanceChain(archID)
	if err != nil {
		return nil, err
	}

	flat := &FlattenedArchitecture{
		ArchID:  archID,
		Version: r.reg.Version(),
	}
	for _, node := range chain {
		flat.InheritanceChain = append(flat.InheritanceChain, node.ID)
	}

	appliedMixins := make(map[string]bool)

	// Root to leaf: each node's own constraints first, then its declared
	// mixins. Parent contributions precede child ones so provenance and
	// display order read most-general-first.
	for _, node := range chain {
		for _, c := range node.Constraints {
			flat.Constraints = append(flat.Constraints, ResolvedConstraint{
				Constraint: c,
				Origin:     node.ID,
			})
		}
		for _, h := range node.Hints {
			flat.Hints = append(flat.Hints, ResolvedHint{Text: h, Origin: node.ID})
		}
		for _, p := range node.Pointers {
			flat.Pointers = append(flat.Pointers, ResolvedHint{Text: p, Origin: node.ID})
		}

		for _, mixinID := range node.Mixins {
			mixin, ok := r.reg.Mixin(mixinID)
			if !ok {
				return nil, &UnknownMixinError{ID: mixinID, Via: node.ID}
			}
			if mixin.Mode() == registry.InlineOnly {
				return nil, &InlineModeViolationError{
					Mixin: mixinID,
					Mode:  registry.InlineOnly,
					Via:   node.ID,
				}
			}
			// A mixin contributes once even when several chain levels
			// declare it.
			if appliedMixins[mixinID] {
				continue
			}
			appliedMixins[mixinID] = true
			applyMixin(flat, mixin)
		}
	}

	// Inline mixins are always more specific than the architecture that
	// receives them, so they come last.
	for _, mixinID := range inlineMixins {
		mixin, ok := r.reg.Mixin(mixinID)
		if !ok {
			return nil, &UnknownMixinError{ID: mixinID, Via: "inline"}
		}
		if mixin.Mode() == registry.InlineForbidden {
			return nil, &InlineModeViolationError{
				Mixin: mixinID,
				Mode:  registry.InlineForbidden,
				Via:   "inline",
			}
		}
		if appliedMixins[mixinID] {
			continue
		}
		appliedMixins[mixinID] = true
		applyMixin(flat, mixin)
	}

	resolveDescriptive(flat, chain)
	flat.compilePatterns()
	return flat, nil
}

// inheritanceChain walks inherits links from archID to the root, returning
// nodes root first. Revisiting any id fails with a CycleError naming the
// cycle.
func (r *Resolver) inheritanceChain(archID string) ([]*registry.ArchitectureNode, error) {
	var reversed []*registry.ArchitectureNode
	visited := make(map[string]bool)

	id := archID
	var walked []string
	for id != "" {
		if visited[id] {
			return nil, &CycleError{Chain: append(walked, id)}
		}
		visited[id] = true
		walked = append(walked, id)

		node, ok := r.reg.Architecture(id)
		if !ok {
			return nil, &UnknownArchitectureError{ID: id}
		}
		if reason, bad := r.reg.LoadError(id); bad {
			return nil, &ConfigError{ID: id, Reason: reason}
		}
		reversed = append(reversed, node)
		id = node.Inherits
	}

	chain := make([]*registry.ArchitectureNode, len(reversed))
	for i, node := range reversed {
		chain[len(reversed)-1-i] = node
	}
	return chain, nil
}

func applyMixin(flat *FlattenedArchitecture, mixin *registry.Mixin) {
	flat.AppliedMixins = append(flat.AppliedMixins, mixin.ID)
	for _, c := range mixin.Constraints {
		flat.Constraints = append(flat.Constraints, ResolvedConstraint{
			Constraint: c,
			Origin:     mixin.ID,
			FromMixin:  true,
		})
	}
	for _, h := range mixin.Hints {
		flat.Hints = append(flat.Hints, ResolvedHint{Text: h, Origin: mixin.ID})
	}
}

// resolveDescriptive fills descriptive and intent fields leaf-first, falling
// back to the nearest ancestor that defines them.
func resolveDescriptive(flat *FlattenedArchitecture, chain []*registry.ArchitectureNode) {
	for i := len(chain) - 1; i >= 0; i-- {
		node := chain[i]
		if flat.Description == "" {
			flat.Description = node.Description
		}
		if flat.Rationale == "" {
			flat.Rationale = node.Rationale
		}
		if flat.DeprecatedFrom == "" {
			flat.DeprecatedFrom = node.DeprecatedFrom
		}
		if flat.MigrationGuide == "" {
			flat.MigrationGuide = node.MigrationGuide
		}
		if flat.FilePattern == "" {
			flat.FilePattern = node.FilePattern
		}
		if flat.DefaultPath == "" {
			flat.DefaultPath = node.DefaultPath
		}
		if flat.CodePattern == "" {
			flat.CodePattern = node.CodePattern
		}
		if flat.ReferenceImplementations == nil && len(node.ReferenceImplementations) > 0 {
			flat.ReferenceImplementations = node.ReferenceImplementations
		}
		if flat.ExpectedIntents == nil && len(node.ExpectedIntents) > 0 {
			flat.ExpectedIntents = node.ExpectedIntents
		}
		if flat.SuggestedIntents == nil && len(node.SuggestedIntents) > 0 {
			flat.SuggestedIntents = node.SuggestedIntents
		}
	}
}

// cacheKey builds the lookup key from archID and the sorted inline mixin
// set, so tag order on the file never splits the cache.
func cacheKey(archID string, inlineMixins []string) string {
	if len(inlineMixins) == 0 {
		return archID
	}
	sorted := make([]string, len(inlineMixins))
	copy(sorted, inlineMixins)
	sort.Strings(sorted)
	return archID + "+" + strings.Join(sorted, ",")
}
