package config

import (
	"time"
)

const DefaultConfigPath = "./codesense.toml"

type Config struct {
	Server        Server        `toml:"server"`
	Project       Project       `toml:"project"`
	Session       Session       `toml:"session"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Server struct {
	Host          string        `toml:"host"`
	Port          int           `toml:"port"`
	Workers       int           `toml:"workers"`
	QueueSize     int           `toml:"queue_size"`
	ShutdownGrace time.Duration `toml:"shutdown_grace"`
	Output        string        `toml:"output"`
	AcceptRate    float64       `toml:"accept_rate"`
	AcceptBurst   int           `toml:"accept_burst"`
	MaxLineBytes  int           `toml:"max_line_bytes"`
}

type Project struct {
	Root string `toml:"root"`
}

type Session struct {
	BuildTool      string        `toml:"build_tool"`
	TaskTimeout    time.Duration `toml:"task_timeout"`
	JavaExtensions []string      `toml:"java_extensions"`
}

type Watch struct {
	Enabled      bool          `toml:"enabled"`
	Debounce     time.Duration `toml:"debounce"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	ServiceName   string `toml:"service_name"`
}

const (
	BuildToolAuto   = "auto"
	BuildToolMaven  = "maven"
	BuildToolGradle = "gradle"
)

// Default returns the built-in configuration. Load decodes files on top of
// it, so keys missing from a file keep these values.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:          "127.0.0.1",
			Port:          55555,
			Workers:       4,
			QueueSize:     16,
			ShutdownGrace: 3 * time.Second,
			Output:        "sexp",
			MaxLineBytes:  1 << 20,
		},
		Project: Project{
			Root: ".",
		},
		Session: Session{
			BuildTool:      BuildToolAuto,
			TaskTimeout:    10 * time.Minute,
			JavaExtensions: []string{".java"},
		},
		Watch: Watch{
			Enabled:      true,
			Debounce:     500 * time.Millisecond,
			ExcludeDirs:  []string{".git", ".idea", "target", "build", "out", "node_modules"},
			ExcludeFiles: []string{"package-info.java", "module-info.java"},
		},
		Observability: Observability{
			Address:     "127.0.0.1:9464",
			ServiceName: "codesense",
		},
	}
}
