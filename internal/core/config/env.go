package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CODESENSE_[SECTION]_[KEY] (e.g., CODESENSE_SERVER_PORT).
func ApplyEnvOverrides(cfg *Config) {
	// Server
	setEnvString(&cfg.Server.Host, "CODESENSE_SERVER_HOST")
	setEnvInt(&cfg.Server.Port, "CODESENSE_SERVER_PORT")
	setEnvInt(&cfg.Server.Workers, "CODESENSE_SERVER_WORKERS")
	setEnvInt(&cfg.Server.QueueSize, "CODESENSE_SERVER_QUEUE_SIZE")
	setEnvDuration(&cfg.Server.ShutdownGrace, "CODESENSE_SERVER_SHUTDOWN_GRACE")
	setEnvString(&cfg.Server.Output, "CODESENSE_SERVER_OUTPUT")
	setEnvFloat64(&cfg.Server.AcceptRate, "CODESENSE_SERVER_ACCEPT_RATE")
	setEnvInt(&cfg.Server.AcceptBurst, "CODESENSE_SERVER_ACCEPT_BURST")

	// Project
	setEnvString(&cfg.Project.Root, "CODESENSE_PROJECT_ROOT")

	// Session
	setEnvString(&cfg.Session.BuildTool, "CODESENSE_SESSION_BUILD_TOOL")
	setEnvDuration(&cfg.Session.TaskTimeout, "CODESENSE_SESSION_TASK_TIMEOUT")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "CODESENSE_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "CODESENSE_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "CODESENSE_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "CODESENSE_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CODESENSE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "CODESENSE_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		} else {
			slog.Warn("ignoring env override", "key", key, "value", val, "error", err)
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		} else {
			slog.Warn("ignoring env override", "key", key, "value", val, "error", err)
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		} else {
			slog.Warn("ignoring env override", "key", key, "value", val, "error", err)
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		} else {
			slog.Warn("ignoring env override", "key", key, "value", val, "error", err)
		}
	}
}
