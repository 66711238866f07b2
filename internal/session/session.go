package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/core/watcher"
	"codesense/internal/engine/parser"
	"codesense/internal/engine/scope"
	"codesense/internal/shared/observability"
)

var _ ports.Session = (*Local)(nil)

type Options struct {
	BuildTool    string
	TaskTimeout  time.Duration
	Extensions   []string
	Watch        bool
	Debounce     time.Duration
	ExcludeDirs  []string
	ExcludeFiles []string
	Logger       *slog.Logger
}

// Local is a syntactic session over one project on the local disk. Analyzed
// files are cached per path until they change, the project changes or the
// cache is cleared.
type Local struct {
	opts   Options
	logger *slog.Logger
	parser *parser.Parser
	index  *scope.Index
	jumps  *JumpStack
	run    runner

	mu      sync.RWMutex
	project Project
	watcher *watcher.Watcher
	started bool

	tasks      sync.WaitGroup
	tasksCtx   context.Context
	cancelTask context.CancelFunc
}

// NewFactory returns a ports.SessionFactory producing Local sessions.
func NewFactory(opts Options) ports.SessionFactory {
	return func(ctx context.Context, projectRoot string) (ports.Session, error) {
		return New(projectRoot, opts)
	}
}

func New(projectRoot string, opts Options) (*Local, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 10 * time.Minute
	}
	project, err := DetectProject(projectRoot, opts.BuildTool)
	if err != nil {
		return nil, err
	}
	tasksCtx, cancel := context.WithCancel(context.Background())
	return &Local{
		opts:       opts,
		logger:     opts.Logger.With("component", "session"),
		parser:     parser.NewParser(parser.NewGrammarLoader(opts.Extensions), opts.Logger),
		index:      scope.NewIndex(),
		jumps:      NewJumpStack(defaultJumpLimit),
		run:        execRunner,
		project:    project,
		tasksCtx:   tasksCtx,
		cancelTask: cancel,
	}, nil
}

func (l *Local) Project() Project {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.project
}

func (l *Local) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if l.opts.Watch {
		if err := l.startWatcherLocked(); err != nil {
			return err
		}
	}
	l.started = true
	l.logger.Info("session started", "root", l.project.Root, "build_tool", l.project.BuildTool, "watch", l.opts.Watch)
	return nil
}

// Shutdown stops the watcher, then gives running build tasks up to grace
// before cancelling them.
func (l *Local) Shutdown(ctx context.Context, grace time.Duration) error {
	l.mu.Lock()
	l.started = false
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	var err error
	if w != nil {
		if cerr := w.Close(); cerr != nil {
			err = errors.Wrap(cerr, errors.CodeSessionFailure, "stop watcher")
		}
	}

	done := make(chan struct{})
	go func() {
		l.tasks.Wait()
		close(done)
	}()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		l.logger.Warn("cancelling build tasks after grace period", "grace", grace)
		l.cancelTask()
		<-done
	case <-ctx.Done():
		l.cancelTask()
		<-done
	}
	l.cancelTask()
	l.logger.Info("session stopped")
	return err
}

func (l *Local) startWatcherLocked() error {
	w, err := watcher.NewWatcher(l.opts.Debounce, l.opts.ExcludeDirs, l.opts.ExcludeFiles, l.onChange)
	if err != nil {
		return errors.Wrap(err, errors.CodeSessionFailure, "create watcher")
	}
	w.SetLogger(l.logger)
	w.SetFilters(l.opts.Extensions, []string{"pom.xml", "build.gradle", "build.gradle.kts"})
	if err := w.Watch([]string{l.project.Root}); err != nil {
		_ = w.Close()
		return errors.AddContext(errors.Wrap(err, errors.CodeSessionFailure, "watch project"), errors.CtxPath, l.project.Root)
	}
	l.watcher = w
	return nil
}

// onChange drops changed files from the index. A changed build file may
// move source roots, so it clears everything.
func (l *Local) onChange(paths []string) {
	for _, p := range paths {
		if !l.parser.IsSupportedPath(p) {
			l.index.Clear()
			l.logger.Info("build file changed, cache cleared", "path", p)
			return
		}
	}
	n := l.index.Remove(paths...)
	l.logger.Debug("source files changed", "paths", len(paths), "evicted", n)
}

func (l *Local) ChangeProject(ctx context.Context, root string) (ports.Ack, error) {
	project, err := DetectProject(root, l.opts.BuildTool)
	if err != nil {
		return ports.Ack{}, errors.AddContext(err, errors.CtxOperation, "ChangeProject")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		_ = l.watcher.Close()
		l.watcher = nil
	}
	l.project = project
	l.index.Clear()
	l.jumps.Reset()
	if l.started && l.opts.Watch {
		if err := l.startWatcherLocked(); err != nil {
			return ports.Ack{}, err
		}
	}
	l.logger.Info("project changed", "root", project.Root, "build_tool", project.BuildTool)
	return ports.Ack{}, nil
}

func (l *Local) Parse(ctx context.Context, path string) (ports.Ack, error) {
	if _, err := l.analyze(ctx, path); err != nil {
		return ports.Ack{}, err
	}
	return ports.Ack{}, nil
}

func (l *Local) ClearCache(ctx context.Context) (ports.Ack, error) {
	n := l.index.Len()
	l.index.Clear()
	l.logger.Info("cache cleared", "files", n)
	return ports.Ack{}, nil
}

func (l *Local) Ping(ctx context.Context) (ports.Pong, error) {
	return ports.Pong{Message: "pong"}, nil
}

func (l *Local) Format(ctx context.Context, path string) (ports.Ack, error) {
	return ports.Ack{}, errors.AddContext(errors.New(errors.CodeNotSupported, "formatting is not supported"), errors.CtxPath, path)
}

// analyze parses path from disk and replaces its cached analysis.
func (l *Local) analyze(ctx context.Context, path string) (*scope.File, error) {
	abs := l.Project().Resolve(path)
	file, err := l.parser.ParseFile(ctx, abs)
	if err != nil {
		return nil, err
	}
	l.index.Put(file)
	if l.logger.Enabled(ctx, observability.LevelTrace) {
		file.Tree.Dump(l.logger.With("path", abs))
	}
	return file, nil
}

// file returns the cached analysis of path, analyzing it on a miss.
func (l *Local) file(ctx context.Context, path string) (*scope.File, error) {
	abs := l.Project().Resolve(path)
	if f, ok := l.index.Get(abs); ok {
		return f, nil
	}
	return l.analyze(ctx, abs)
}
