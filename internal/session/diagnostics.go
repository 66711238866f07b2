package session

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/core/watcher"
	"codesense/internal/engine/scope"

	"golang.org/x/sync/errgroup"
)

const (
	severityError   = "error"
	severityWarning = "warning"
)

// Compile re-analyzes path and reports its syntax problems.
func (l *Local) Compile(ctx context.Context, path string) (ports.Diagnostics, error) {
	f, err := l.analyze(ctx, path)
	if err != nil {
		return ports.Diagnostics{}, err
	}
	return ports.Diagnostics{Files: 1, Diagnostics: fileDiagnostics(f, false)}, nil
}

// Diagnostics reports problems of the cached analysis, including symbols
// whose type could not be resolved.
func (l *Local) Diagnostics(ctx context.Context, path string) (ports.Diagnostics, error) {
	f, err := l.file(ctx, path)
	if err != nil {
		return ports.Diagnostics{}, err
	}
	return ports.Diagnostics{Files: 1, Diagnostics: fileDiagnostics(f, true)}, nil
}

// CompileProject re-analyzes every source file under the project root.
func (l *Local) CompileProject(ctx context.Context) (ports.Diagnostics, error) {
	files, err := l.scanProject()
	if err != nil {
		return ports.Diagnostics{}, err
	}

	var mu sync.Mutex
	var diags []ports.Diagnostic
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := l.analyze(gctx, path)
			if err != nil {
				l.logger.Warn("failed to analyze file", "path", path, "error", err)
				return nil
			}
			found := fileDiagnostics(f, false)
			mu.Lock()
			diags = append(diags, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.Diagnostics{}, errors.Wrap(err, errors.CodeSessionFailure, "compile project")
	}

	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Path != diags[j].Path {
			return diags[i].Path < diags[j].Path
		}
		return diags[i].Line < diags[j].Line
	})
	l.logger.Info("project analyzed", "files", len(files), "diagnostics", len(diags))
	return ports.Diagnostics{Files: len(files), Diagnostics: diags}, nil
}

func fileDiagnostics(f *scope.File, withWarnings bool) []ports.Diagnostic {
	var out []ports.Diagnostic
	for _, p := range f.Problems {
		out = append(out, ports.Diagnostic{
			Path:     f.Path,
			Line:     p.Range.Begin.Line,
			Column:   p.Range.Begin.Column,
			Severity: severityError,
			Message:  p.Message,
		})
	}
	if !withWarnings {
		return out
	}
	for _, w := range f.Tree.Validate() {
		r := w.Symbol.Span()
		out = append(out, ports.Diagnostic{
			Path:     f.Path,
			Line:     r.Begin.Line,
			Column:   r.Begin.Column,
			Severity: severityWarning,
			Message:  fmt.Sprintf("%s: %s", w.Symbol.Ident(), w.Reason),
		})
	}
	return out
}

// scanProject lists the project's source files, skipping excluded
// directories and files.
func (l *Local) scanProject() ([]string, error) {
	root := l.Project().Root
	dirGlobs, err := watcher.CompilePatterns(l.opts.ExcludeDirs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArgument, "invalid exclude dir pattern")
	}
	fileGlobs, err := watcher.CompilePatterns(l.opts.ExcludeFiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArgument, "invalid exclude file pattern")
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, g := range dirGlobs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !l.parser.IsSupportedPath(path) {
			return nil
		}
		for _, g := range fileGlobs {
			if g.Match(base) {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeSessionFailure, "scan project"), errors.CtxPath, root)
	}
	return files, nil
}
