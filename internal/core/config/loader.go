package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"strata/internal/engine/naming"

	"github.com/BurntSushi/toml"
)

// Load decodes the TOML file at path, applies STRATA_* environment
// overrides and defaults, anchors relative paths at the file's directory
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.BaseDir) == "" {
		cfg.BaseDir = "src"
	}
	if len(cfg.Sources.Extensions) == 0 {
		cfg.Sources.Extensions = []string{".star"}
	}
	if cfg.Sources.ExcludeDirs == nil {
		cfg.Sources.ExcludeDirs = []string{".git", ".*"}
	}
	if cfg.Realms.Prefixes == nil {
		cfg.Realms.Prefixes = append([]string(nil), naming.DefaultRealmPrefixes...)
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MaxReloadsPerSecond == 0 {
		cfg.Watch.MaxReloadsPerSecond = 2
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".strata/history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}
	if cfg.History.KeepRuns == 0 {
		cfg.History.KeepRuns = 500
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}

func normalize(cfg *Config) {
	cfg.BaseDir = strings.TrimSpace(cfg.BaseDir)
	cfg.EntryPoint = strings.TrimSpace(cfg.EntryPoint)
	for i, ext := range cfg.Sources.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Sources.Extensions[i] = ext
	}
	for i, p := range cfg.Realms.Prefixes {
		cfg.Realms.Prefixes[i] = strings.TrimSpace(p)
	}
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func resolvePaths(cfg *Config, dir string) {
	cfg.BaseDir = ResolveRelative(dir, cfg.BaseDir)
	cfg.History.Path = ResolveRelative(dir, cfg.History.Path)
}

// ResolveRelative anchors a relative path at base. Absolute paths are
// cleaned and returned unchanged.
func ResolveRelative(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}
