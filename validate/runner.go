package validate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/archlint/annotation"
	"github.com/c360studio/archlint/coverage"
	"github.com/c360studio/archlint/evaluate"
	"github.com/c360studio/archlint/facts"
	"github.com/c360studio/archlint/override"
	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/resolver"
)

// DefaultWorkers bounds concurrent per-file validation in a batch.
const DefaultWorkers = 16

// Options configures a Runner.
type Options struct {
	// Policy governs override validation. Nil uses the default policy.
	Policy *override.Policy

	// Workers bounds batch concurrency.
	Workers int

	// Extractors supplies fact extraction. Nil uses facts.DefaultRegistry.
	Extractors *facts.Registry

	// Coverage tunes the coverage analyzer.
	Coverage coverage.Options

	// Metrics receives counters; nil disables them.
	Metrics *Metrics

	// Logger for per-file diagnostics.
	Logger *slog.Logger

	// Now supplies the validation clock; tests pin it.
	Now func() time.Time
}

// Runner validates files against one registry.
type Runner struct {
	root       string
	resolver   *resolver.Resolver
	evaluator  *evaluate.Evaluator
	extractors *facts.Registry
	policy     override.Policy
	workers    int
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner creates a runner rooted at root over reg.
func NewRunner(root string, reg *registry.Registry, opts Options) *Runner {
	r := &Runner{
		root:       root,
		resolver:   resolver.New(reg),
		evaluator:  evaluate.New(coverage.NewAnalyzer(root, opts.Coverage)),
		extractors: opts.Extractors,
		policy:     override.DefaultPolicy(),
		workers:    opts.Workers,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if opts.Policy != nil {
		r.policy = *opts.Policy
	}
	if r.extractors == nil {
		r.extractors = facts.DefaultRegistry
	}
	if r.workers <= 0 {
		r.workers = DefaultWorkers
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolver exposes the runner's resolver for display commands.
func (r *Runner) Resolver() *resolver.Resolver {
	return r.resolver
}

// ValidateFile reads and validates one file. A file with no @arch tag
// returns (nil, nil).
func (r *Runner) ValidateFile(ctx context.Context, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return r.ValidateSource(ctx, path, src), nil
}

// ValidateSource validates source bytes already in memory. Returns nil for
// untagged files.
func (r *Runner) ValidateSource(ctx context.Context, path string, src []byte) *Result {
	ann := annotation.Parse(src)
	if ann.Arch == "" {
		r.metrics.observeSkip()
		return nil
	}

	res := &Result{
		Path:         r.displayPath(path),
		ArchID:       ann.Arch,
		InlineMixins: ann.InlineMixins,
		Violations:   []Violation{},
		Passed:       true,
	}

	flat, err := r.resolver.Resolve(ann.Arch, ann.InlineMixins)
	if err != nil {
		// Resolution failure is file-fatal and unsuppressable: overrides
		// target rules, not resolution.
		res.Violations = append(res.Violations, Violation{
			Rule:     ResolutionRule,
			Severity: registry.SeverityError,
			Message:  err.Error(),
			Origin:   ann.Arch,
		})
		res.Passed = false
		r.metrics.observe(res)
		return res
	}

	bundle, err := r.extractors.ForPath(path).Extract(ctx, path, src)
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{
			Message: fmt.Sprintf("fact extraction failed, falling back to text facts: %v", err),
		})
		bundle = textOnlyBundle(path, src)
	}

	intents := ann.IntentNames()
	now := r.now()

	for i, c := range flat.Constraints {
		verdict := r.evaluator.Evaluate(ctx, flat, i, bundle, intents)
		switch verdict.Status {
		case evaluate.StatusPass:
			continue

		case evaluate.StatusSkipped:
			res.Warnings = append(res.Warnings, Warning{
				Rule:    c.Rule,
				Origin:  c.Origin,
				Message: fmt.Sprintf("rule skipped: %s", verdict.Reason),
			})

		case evaluate.StatusViolation:
			v := Violation{
				Rule:        c.Rule,
				Severity:    c.EffectiveSeverity(),
				Message:     verdict.Message,
				Origin:      c.Origin,
				FromMixin:   c.FromMixin,
				Value:       verdict.Value,
				Why:         c.Why,
				Alternative: c.Alternative,
			}

			app := override.Apply(c.Rule, verdict.Value, ann.Overrides, r.policy, now)
			if app.Suppressed {
				res.Suppressed = append(res.Suppressed, SuppressedViolation{
					Violation: v,
					Override:  *app.Override,
				})
				for _, w := range app.Warnings {
					res.Warnings = append(res.Warnings, Warning{
						Rule: c.Rule, Origin: c.Origin, Message: w,
					})
				}
				continue
			}

			res.Violations = append(res.Violations, v)
			// An invalid override never suppresses; its own problems are
			// reported alongside the surviving violation.
			for _, p := range app.Problems {
				res.Warnings = append(res.Warnings, Warning{
					Rule: c.Rule, Origin: c.Origin, Message: p,
				})
			}
		}
	}

	for _, v := range res.Violations {
		if v.Severity == registry.SeverityError {
			res.Passed = false
			break
		}
	}
	r.metrics.observe(res)
	return res
}

// ValidatePaths expands glob patterns and validates every matched file under
// a bounded worker pool. Per-file failures become warnings on the batch, not
// errors.
func (r *Runner) ValidatePaths(ctx context.Context, patterns []string) (*Batch, error) {
	paths, err := r.expand(patterns)
	if err != nil {
		return nil, err
	}

	batch := &Batch{RunID: uuid.New().String()}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			res, err := r.ValidateFile(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				r.logger.Warn("skipping unreadable file",
					slog.String("path", path),
					slog.String("error", err.Error()))
				batch.Skipped++
			case res == nil:
				batch.Skipped++
			default:
				batch.Results = append(batch.Results, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].Path < batch.Results[j].Path
	})
	return batch, nil
}

func (r *Runner) expand(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		abs := pattern
		if !filepath.IsAbs(pattern) {
			abs = filepath.Join(r.root, pattern)
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			if !seen[abs] {
				seen[abs] = true
				paths = append(paths, abs)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(abs)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Runner) displayPath(path string) string {
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func textOnlyBundle(path string, src []byte) *facts.Bundle {
	text := string(src)
	lines := strings.Count(text, "\n")
	if len(text) > 0 && !strings.HasSuffix(text, "\n") {
		lines++
	}
	return &facts.Bundle{
		Path:       path,
		Language:   "text",
		Text:       text,
		TotalLines: lines,
		CodeLines:  lines,
	}
}
