package config

import (
	"time"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "strata.toml"

type Config struct {
	Version       int            `toml:"version"`
	BaseDir       string         `toml:"base_dir"`
	EntryPoint    string         `toml:"entry_point"`
	Sources       Sources        `toml:"sources"`
	Realms        Realms         `toml:"realms"`
	Host          Host           `toml:"host"`
	Watch         Watch          `toml:"watch"`
	History       History        `toml:"history"`
	Observability Observability  `toml:"observability"`
	Globals       map[string]any `toml:"globals"`
}

type Sources struct {
	Extensions   []string `toml:"extensions"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
}

// Realms lists the file-name prefixes stripped when deriving object names.
// An explicit empty list disables stripping.
type Realms struct {
	Prefixes []string `toml:"prefixes"`
}

type Host struct {
	MaxSteps uint64 `toml:"max_steps"`
}

type Watch struct {
	Debounce            time.Duration `toml:"debounce"`
	MaxReloadsPerSecond float64       `toml:"max_reloads_per_second"`
	Burst               int           `toml:"burst"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	KeepRuns    int           `toml:"keep_runs"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}

// FromEnv builds a configuration from defaults and STRATA_* overrides
// only, anchoring relative paths at dir.
func FromEnv(dir string) (*Config, error) {
	cfg := &Config{}
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	normalize(cfg)
	resolvePaths(cfg, dir)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
