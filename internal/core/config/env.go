package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: STRATA_[SECTION]_[KEY] (e.g., STRATA_WATCH_DEBOUNCE). Lists are
// comma separated.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.BaseDir, "STRATA_BASE_DIR")
	setEnvString(&cfg.EntryPoint, "STRATA_ENTRY_POINT")

	// Sources
	setEnvList(&cfg.Sources.Extensions, "STRATA_SOURCES_EXTENSIONS")
	setEnvList(&cfg.Sources.ExcludeDirs, "STRATA_SOURCES_EXCLUDE_DIRS")
	setEnvList(&cfg.Sources.ExcludeFiles, "STRATA_SOURCES_EXCLUDE_FILES")

	setEnvList(&cfg.Realms.Prefixes, "STRATA_REALMS_PREFIXES")
	setEnvUint64(&cfg.Host.MaxSteps, "STRATA_HOST_MAX_STEPS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "STRATA_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxReloadsPerSecond, "STRATA_WATCH_MAX_RELOADS_PER_SECOND")
	setEnvInt(&cfg.Watch.Burst, "STRATA_WATCH_BURST")

	// History
	setEnvBool(&cfg.History.Enabled, "STRATA_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "STRATA_HISTORY_PATH")
	setEnvDuration(&cfg.History.BusyTimeout, "STRATA_HISTORY_BUSY_TIMEOUT")
	setEnvInt(&cfg.History.KeepRuns, "STRATA_HISTORY_KEEP_RUNS")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "STRATA_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "STRATA_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "STRATA_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	items := []string{}
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	slog.Debug("applying env override", "key", key, "value", val)
	*target = items
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := cast.ToIntE(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		} else {
			slog.Warn("ignoring invalid env override", "key", key, "error", err)
		}
	}
}

func setEnvUint64(target *uint64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := cast.ToUint64E(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = n
		} else {
			slog.Warn("ignoring invalid env override", "key", key, "error", err)
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := cast.ToFloat64E(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		} else {
			slog.Warn("ignoring invalid env override", "key", key, "error", err)
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := cast.ToBoolE(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		} else {
			slog.Warn("ignoring invalid env override", "key", key, "error", err)
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := cast.ToDurationE(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		} else {
			slog.Warn("ignoring invalid env override", "key", key, "error", err)
		}
	}
}
