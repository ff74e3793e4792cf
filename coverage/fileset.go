package coverage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// fileContent pairs a path with its content. Content is empty when the file
// could not be read; an unreadable target is treated as "not covered", never
// as a failure.
type fileContent struct {
	path    string
	content string
}

// expandGlob resolves a doublestar glob relative to root into a sorted,
// bounded list of regular files. A pattern matching nothing is not an error.
func (a *Analyzer) expandGlob(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	abs := pattern
	if !filepath.IsAbs(pattern) {
		abs = filepath.Join(a.root, pattern)
	}
	matches, err := doublestar.FilepathGlob(abs)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
		if a.maxFiles > 0 && len(files) >= a.maxFiles {
			a.logger.Warn("glob hit file limit",
				slog.String("pattern", pattern),
				slog.Int("limit", a.maxFiles))
			break
		}
	}
	sort.Strings(files)
	return files, nil
}

// readFiles reads every path concurrently under the worker bound, preserving
// path order in the result.
func (a *Analyzer) readFiles(ctx context.Context, paths []string) ([]fileContent, error) {
	contents := make([]fileContent, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			data, err := os.ReadFile(path)
			if err != nil {
				a.logger.Debug("skipping unreadable file",
					slog.String("path", path),
					slog.String("error", err.Error()))
				contents[i] = fileContent{path: path}
				return nil
			}
			contents[i] = fileContent{path: path, content: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// relPath renders a path relative to the analyzer root for display.
func (a *Analyzer) relPath(path string) string {
	if rel, err := filepath.Rel(a.root, path); err == nil {
		return rel
	}
	return path
}
