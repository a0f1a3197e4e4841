package config

import (
	"fmt"
	"regexp"
	"strings"

	"strata/internal/engine/naming"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a decoded configuration.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateEntryPoint,
		validateSources,
		validateRealms,
		validateWatch,
		validateHistory,
		validateObservability,
		validateGlobals,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateEntryPoint(cfg *Config) error {
	if cfg.EntryPoint == "" {
		return nil
	}
	_, last := naming.SplitLocation(cfg.EntryPoint)
	if last == "" {
		return fmt.Errorf("entry_point %q must end with an object name", cfg.EntryPoint)
	}
	if naming.IsWildcard(last) {
		return fmt.Errorf("entry_point %q must not be a wildcard", cfg.EntryPoint)
	}
	return nil
}

func validateSources(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Sources.Extensions))
	for i, ext := range cfg.Sources.Extensions {
		if ext == "" || ext == "." {
			return fmt.Errorf("sources.extensions[%d] must not be empty", i)
		}
		if seen[ext] {
			return fmt.Errorf("sources.extensions contains %q twice", ext)
		}
		seen[ext] = true
	}
	return nil
}

func validateRealms(cfg *Config) error {
	for i, p := range cfg.Realms.Prefixes {
		if p == "" {
			return fmt.Errorf("realms.prefixes[%d] must not be empty", i)
		}
		if strings.ContainsAny(p, "./\\") {
			return fmt.Errorf("realms.prefixes[%d] %q must not contain path or location separators", i, p)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxReloadsPerSecond < 0 {
		return fmt.Errorf("watch.max_reloads_per_second must not be negative, got %v", cfg.Watch.MaxReloadsPerSecond)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if !cfg.History.Enabled {
		return nil
	}
	if cfg.History.Path == "" || cfg.History.Path == "." {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	if cfg.History.KeepRuns < 0 {
		return fmt.Errorf("history.keep_runs must not be negative, got %d", cfg.History.KeepRuns)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Enabled && cfg.Observability.Address == "" {
		return fmt.Errorf("observability.address must not be empty when observability is enabled")
	}
	return nil
}

func validateGlobals(cfg *Config) error {
	for name, v := range cfg.Globals {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("globals.%s is not a valid identifier", name)
		}
		switch v.(type) {
		case string, bool, int64, float64:
		default:
			return fmt.Errorf("globals.%s must be a string, integer, float or boolean, got %T", name, v)
		}
	}
	return nil
}
