package facts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ExtractorFactory creates an Extractor instance.
type ExtractorFactory func() Extractor

// Registry maps file extensions to extractor factories. Thread-safe; the
// first registration for an extension wins.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]ExtractorFactory // name → factory
	extMap     map[string]string           // extension → extractor name
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]ExtractorFactory),
		extMap:     make(map[string]string),
	}
}

// DefaultRegistry is populated by extractor init() registration.
var DefaultRegistry = NewRegistry()

// Register adds an extractor factory for the given extensions. Extensions
// include the leading dot.
func (r *Registry) Register(name string, extensions []string, factory ExtractorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors[name] = factory
	for _, ext := range extensions {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// ForPath returns an extractor for the file's extension, falling back to the
// text-only extractor for unregistered extensions.
func (r *Registry) ForPath(path string) Extractor {
	ext := strings.ToLower(filepath.Ext(path))

	r.mu.RLock()
	name, ok := r.extMap[ext]
	var factory ExtractorFactory
	if ok {
		factory = r.extractors[name]
	}
	r.mu.RUnlock()

	if factory == nil {
		return textExtractor{}
	}
	return factory()
}

// ExtractFile reads a file and extracts its fact bundle.
func (r *Registry) ExtractFile(ctx context.Context, path string) (*Bundle, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.ForPath(path).Extract(ctx, path, src)
}

// textExtractor produces a text-only bundle: raw content and line counts.
// Pattern and line-count rules still evaluate against it; structural rules
// see empty fact lists.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, path string, src []byte) (*Bundle, error) {
	text := string(src)
	total, code := countLines(text)
	return &Bundle{
		Path:       path,
		Language:   "text",
		Text:       text,
		TotalLines: total,
		CodeLines:  code,
	}, nil
}

// fileExists reports whether any of the candidate paths exists.
func fileExists(paths ...string) bool {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
