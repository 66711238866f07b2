package config

import (
	"os"
	"strings"

	"codesense/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads the TOML file at path over the defaults, normalizes it and
// validates it. The first validation failure is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.AddContext(
			errors.Newf(errors.CodeValidationError, "unknown config keys: %s", strings.Join(keys, ", ")),
			errors.CtxPath, path)
	}

	if err := finish(cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the defaults when path is
// the default location and no file exists there.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == DefaultConfigPath && errors.IsCode(err, errors.CodeNotFound) {
		cfg = Default()
		if err := finish(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return nil, err
}

// Finalize applies env overrides and re-validates. Call it after CLI flags
// have been layered on top of a loaded config.
func Finalize(cfg *Config) error {
	ApplyEnvOverrides(cfg)
	return finish(cfg)
}

func finish(cfg *Config) error {
	applyDefaults(cfg)
	normalize(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return errors.Wrap(errs[0], errors.CodeValidationError, "invalid config")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.Server.Host) == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = def.Server.ShutdownGrace
	}
	if cfg.Server.MaxLineBytes == 0 {
		cfg.Server.MaxLineBytes = def.Server.MaxLineBytes
	}
	if strings.TrimSpace(cfg.Server.Output) == "" {
		cfg.Server.Output = def.Server.Output
	}
	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = def.Project.Root
	}
	if strings.TrimSpace(cfg.Session.BuildTool) == "" {
		cfg.Session.BuildTool = def.Session.BuildTool
	}
	if cfg.Session.TaskTimeout == 0 {
		cfg.Session.TaskTimeout = def.Session.TaskTimeout
	}
	if len(cfg.Session.JavaExtensions) == 0 {
		cfg.Session.JavaExtensions = def.Session.JavaExtensions
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = def.Watch.Debounce
	}
	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = def.Observability.Address
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = def.Observability.ServiceName
	}
}

func normalize(cfg *Config) {
	cfg.Server.Host = strings.TrimSpace(cfg.Server.Host)
	cfg.Server.Output = strings.ToLower(strings.TrimSpace(cfg.Server.Output))
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	cfg.Session.BuildTool = strings.ToLower(strings.TrimSpace(cfg.Session.BuildTool))
	cfg.Session.JavaExtensions = normalizeExtensions(cfg.Session.JavaExtensions)
	cfg.Watch.ExcludeDirs = trimAll(cfg.Watch.ExcludeDirs)
	cfg.Watch.ExcludeFiles = trimAll(cfg.Watch.ExcludeFiles)
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
