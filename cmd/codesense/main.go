package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codesense/internal/core/config"
	"codesense/internal/output"
	"codesense/internal/session"
	"codesense/internal/shared/observability"
	"codesense/internal/transport"
)

const VERSION = "1.0.0"

type options struct {
	configPath string
	host       string
	port       int
	project    string
	workers    int
	output     string
	verbose    bool
	trace      bool
	logFile    string
	version    bool
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("codesense", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to config file")
	fs.StringVar(&opts.host, "host", "", "Address to listen on")
	fs.IntVar(&opts.port, "port", 0, "Port to listen on (0 picks a free port)")
	fs.StringVar(&opts.project, "project", "", "Project root to open")
	fs.IntVar(&opts.workers, "workers", 0, "Number of connection workers")
	fs.StringVar(&opts.output, "output", "", "Response format (sexp or json)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.trace, "trace", false, "Log every analyzed symbol")
	fs.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one project argument, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		opts.project = fs.Arg(0)
		opts.set["project"] = true
	}
	return opts, nil
}

// apply copies explicitly set flags over the loaded configuration.
func (o *options) apply(cfg *config.Config) {
	if o.set["host"] {
		cfg.Server.Host = o.host
	}
	if o.set["port"] {
		cfg.Server.Port = o.port
	}
	if o.set["workers"] {
		cfg.Server.Workers = o.workers
	}
	if o.set["output"] {
		cfg.Server.Output = o.output
	}
	if o.set["project"] {
		cfg.Project.Root = o.project
	}
}

func (o *options) logLevel() slog.Level {
	switch {
	case o.trace:
		return observability.LevelTrace
	case o.verbose:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// openLog returns the log destination. Symlinked log paths are refused.
func openLog(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return nil, nil, fmt.Errorf("refusing to write logs to symlink path %s", path)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "codesense v%s\n", VERSION)
		return 0
	}

	logOut, closeLog, err := openLog(opts.logFile, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeLog()
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: opts.logLevel()}))
	slog.SetDefault(logger)

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		logger.Error("failed to load config", "path", opts.configPath, "error", err)
		return 1
	}
	opts.apply(cfg)
	if err := config.Finalize(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	renderer, err := output.New(cfg.Server.Output)
	if err != nil {
		logger.Error("failed to create renderer", "error", err)
		return 1
	}

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: VERSION,
			OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
			Insecure:       true,
		})
		if err != nil {
			logger.Error("failed to initialize tracing", "error", err)
			return 1
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	factory := session.NewFactory(session.Options{
		BuildTool:    cfg.Session.BuildTool,
		TaskTimeout:  cfg.Session.TaskTimeout,
		Extensions:   cfg.Session.JavaExtensions,
		Watch:        cfg.Watch.Enabled,
		Debounce:     cfg.Watch.Debounce,
		ExcludeDirs:  cfg.Watch.ExcludeDirs,
		ExcludeFiles: cfg.Watch.ExcludeFiles,
		Logger:       logger,
	})
	srv := transport.NewServer(transport.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ProjectRoot:   cfg.Project.Root,
		Workers:       cfg.Server.Workers,
		QueueSize:     cfg.Server.QueueSize,
		ShutdownGrace: cfg.Server.ShutdownGrace,
		AcceptRate:    cfg.Server.AcceptRate,
		AcceptBurst:   cfg.Server.AcceptBurst,
		MaxLineBytes:  cfg.Server.MaxLineBytes,
	}, factory, renderer, logger)

	if cfg.Observability.Enabled {
		obs := observability.NewServer(cfg.Observability.Address, srv.Health)
		if err := obs.Start(ctx); err != nil {
			logger.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(stopCtx)
		}()
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		return 1
	}
	logger.Info("server stopped")
	return 0
}
