package coverage

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// DefaultMaxFiles bounds glob expansion so a careless pattern on a
	// large repository cannot exhaust memory.
	DefaultMaxFiles = 10000

	// DefaultWorkers bounds concurrent file reads.
	DefaultWorkers = 16
)

// Analyzer computes coverage results relative to a repository root.
type Analyzer struct {
	root     string
	maxFiles int
	workers  int
	logger   *slog.Logger
}

// Options tunes an Analyzer.
type Options struct {
	// MaxFiles caps how many files one glob may expand to.
	MaxFiles int

	// Workers bounds concurrent file reads.
	Workers int

	// Logger receives skip and limit diagnostics.
	Logger *slog.Logger
}

// NewAnalyzer creates an analyzer rooted at the given directory.
func NewAnalyzer(root string, opts Options) *Analyzer {
	a := &Analyzer{
		root:     root,
		maxFiles: opts.MaxFiles,
		workers:  opts.Workers,
		logger:   opts.Logger,
	}
	if a.maxFiles <= 0 {
		a.maxFiles = DefaultMaxFiles
	}
	if a.workers <= 0 {
		a.workers = DefaultWorkers
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Compute discovers source values per cfg and checks each against the target
// file set. Missing source or target file sets are not errors; they yield
// zero counts. Coverage of an empty source set is vacuously 100 percent.
func (a *Analyzer) Compute(ctx context.Context, cfg Config) (*Result, error) {
	sourcePaths, err := a.expandGlob(cfg.InFiles)
	if err != nil {
		return nil, err
	}
	sourceFiles, err := a.readFiles(ctx, sourcePaths)
	if err != nil {
		return nil, err
	}

	sources, err := discoverSources(cfg, sourceFiles, a.relPath)
	if err != nil {
		return nil, err
	}

	result := &Result{TotalSources: len(sources), Gaps: []Gap{}}
	if len(sources) == 0 {
		result.CoveragePercent = 100
		return result, nil
	}

	targetPaths, err := a.expandGlob(cfg.InTargetFiles)
	if err != nil {
		return nil, err
	}
	targetFiles, err := a.readFiles(ctx, targetPaths)
	if err != nil {
		return nil, err
	}
	var hay strings.Builder
	for _, f := range targetFiles {
		hay.WriteString(f.content)
		hay.WriteByte('\n')
	}
	haystack := hay.String()

	for _, src := range sources {
		substituted := applyTransform(cfg.Transform, src.value)
		needle := strings.ReplaceAll(cfg.TargetPattern, "${value}", substituted)
		if strings.Contains(haystack, needle) {
			result.CoveredSources++
			continue
		}
		result.Gaps = append(result.Gaps, Gap{
			Value:         src.value,
			SourceFile:    src.file,
			SourceLine:    src.line,
			ExpectedIn:    cfg.InTargetFiles,
			TargetPattern: needle,
		})
	}

	result.CoveragePercent = float64(result.CoveredSources) / float64(result.TotalSources) * 100
	return result, nil
}
