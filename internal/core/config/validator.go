package config

import (
	"fmt"
	"net"
	"os"

	"codesense/internal/core/watcher"
)

var knownOutputs = map[string]bool{"sexp": true, "json": true}

var knownBuildTools = map[string]bool{
	BuildToolAuto:   true,
	BuildToolMaven:  true,
	BuildToolGradle: true,
}

// Validate reports every problem in cfg. An empty result means the config is
// usable.
func Validate(cfg *Config) []error {
	var errs []error
	errs = append(errs, validateServer(cfg)...)
	errs = append(errs, validateProject(cfg)...)
	errs = append(errs, validateSession(cfg)...)
	errs = append(errs, validateWatch(cfg)...)
	errs = append(errs, validateObservability(cfg)...)
	return errs
}

func validateServer(cfg *Config) []error {
	var errs []error
	s := cfg.Server
	if s.Port < 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got %d", s.Port))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("server.workers must be >= 1, got %d", s.Workers))
	}
	if s.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("server.queue_size must be >= 0, got %d", s.QueueSize))
	}
	if s.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_grace must not be negative"))
	}
	if !knownOutputs[s.Output] {
		errs = append(errs, fmt.Errorf("server.output must be one of: sexp, json (got %q)", s.Output))
	}
	if s.MaxLineBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_line_bytes must not be negative"))
	}
	if s.AcceptRate < 0 {
		errs = append(errs, fmt.Errorf("server.accept_rate must not be negative"))
	}
	if s.AcceptBurst < 0 {
		errs = append(errs, fmt.Errorf("server.accept_burst must not be negative"))
	}
	return errs
}

func validateProject(cfg *Config) []error {
	info, err := os.Stat(cfg.Project.Root)
	if err != nil {
		return []error{fmt.Errorf("project.root %q does not exist", cfg.Project.Root)}
	}
	if !info.IsDir() {
		return []error{fmt.Errorf("project.root %q is not a directory", cfg.Project.Root)}
	}
	return nil
}

func validateSession(cfg *Config) []error {
	var errs []error
	if !knownBuildTools[cfg.Session.BuildTool] {
		errs = append(errs, fmt.Errorf("session.build_tool must be one of: auto, maven, gradle (got %q)", cfg.Session.BuildTool))
	}
	if cfg.Session.TaskTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.task_timeout must not be negative"))
	}
	if len(cfg.Session.JavaExtensions) == 0 {
		errs = append(errs, fmt.Errorf("session.java_extensions must list at least one extension"))
	}
	return errs
}

func validateWatch(cfg *Config) []error {
	var errs []error
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	for i, pattern := range cfg.Watch.ExcludeDirs {
		if _, err := watcher.CompilePatterns([]string{pattern}); err != nil {
			errs = append(errs, fmt.Errorf("watch.exclude_dirs[%d] %q is not a valid glob: %v", i, pattern, err))
		}
	}
	for i, pattern := range cfg.Watch.ExcludeFiles {
		if _, err := watcher.CompilePatterns([]string{pattern}); err != nil {
			errs = append(errs, fmt.Errorf("watch.exclude_files[%d] %q is not a valid glob: %v", i, pattern, err))
		}
	}
	return errs
}

func validateObservability(cfg *Config) []error {
	if !cfg.Observability.Enabled {
		return nil
	}
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.Observability.Address); err != nil {
		errs = append(errs, fmt.Errorf("observability.address %q is not host:port: %v", cfg.Observability.Address, err))
	}
	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint == "" {
		errs = append(errs, fmt.Errorf("observability.otlp_endpoint must be set when enable_tracing is true"))
	}
	return errs
}
