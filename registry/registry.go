package registry

import (
	"sort"
	"sync"
)

// Registry is the loaded, immutable architecture registry. Reads are safe
// for concurrent use; the setters exist for tests and programmatic assembly
// and must not race with resolution.
type Registry struct {
	mu            sync.RWMutex
	version       string
	architectures map[string]*ArchitectureNode
	mixins        map[string]*Mixin
	drift         []DriftWarning

	// loadErrors maps an architecture id to the reason its definition is
	// unusable (malformed constraint payload, unknown rule kind). The node
	// stays listed so reporters can name it, but resolution must fail with
	// a config error rather than evaluate half a definition.
	loadErrors map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		architectures: make(map[string]*ArchitectureNode),
		mixins:        make(map[string]*Mixin),
		loadErrors:    make(map[string]string),
	}
}

// Version returns the registry document version string, if any.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Architecture returns the node for id.
func (r *Registry) Architecture(id string) (*ArchitectureNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.architectures[id]
	return node, ok
}

// Mixin returns the mixin for id.
func (r *Registry) Mixin(id string) (*Mixin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mixins[id]
	return m, ok
}

// Architectures returns all architecture ids in lexical order.
func (r *Registry) Architectures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.architectures))
	for id := range r.architectures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Mixins returns all mixin ids in lexical order.
func (r *Registry) Mixins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.mixins))
	for id := range r.mixins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DriftWarnings returns the unknown-field warnings collected at load time.
func (r *Registry) DriftWarnings() []DriftWarning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DriftWarning, len(r.drift))
	copy(out, r.drift)
	return out
}

// LoadError returns the load-time error recorded against an architecture id,
// if any.
func (r *Registry) LoadError(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reason, ok := r.loadErrors[id]
	return reason, ok
}

// SetArchitecture adds or replaces an architecture node.
func (r *Registry) SetArchitecture(node *ArchitectureNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.architectures[node.ID] = node
}

// SetMixin adds or replaces a mixin.
func (r *Registry) SetMixin(m *Mixin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mixins[m.ID] = m
}

func (r *Registry) setVersion(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = v
}

func (r *Registry) addDrift(node, field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drift = append(r.drift, DriftWarning{Node: node, Field: field})
}

func (r *Registry) setLoadError(id, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErrors[id] = reason
}
