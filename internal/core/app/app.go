// Package app wires configuration, discovery, the Starlark host and the run
// journal into a runtime the CLI drives.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/data/history"
	"strata/internal/engine/discovery"
	"strata/internal/engine/naming"
	"strata/internal/engine/runtime"
	"strata/internal/engine/starhost"
	"strata/internal/shared/util"

	"github.com/google/uuid"
)

// Dependencies replaces the default adapters. Zero fields fall back to
// the configured defaults.
type Dependencies struct {
	Host    func(cfg *config.Config, out io.Writer, logger *slog.Logger) runtime.HostFactory
	Journal ports.RunJournal
	Output  io.Writer
	Logger  *slog.Logger
}

type App struct {
	ConfigPath string

	deps Dependencies

	mu      sync.RWMutex
	config  *config.Config
	lister  *discovery.Lister
	rt      *runtime.Runtime
	limiter *util.Limiter

	// serializes loads on the shared runtime
	runMu sync.Mutex

	journal      ports.RunJournal
	closeJournal func() error

	healthMu sync.RWMutex
	lastRun  *history.Run
}

func New(cfg *config.Config) (*App, error) {
	return NewWithDependencies(cfg, Dependencies{})
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Output == nil {
		deps.Output = os.Stdout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Host == nil {
		deps.Host = defaultHost
	}

	a := &App{
		deps:    deps,
		limiter: util.NewLimiter(cfg.Watch.MaxReloadsPerSecond, cfg.Watch.Burst),
	}
	if err := a.configure(cfg); err != nil {
		return nil, err
	}

	switch {
	case deps.Journal != nil:
		a.journal = deps.Journal
	case cfg.History.Enabled:
		store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "open run journal")
		}
		adapter := history.NewAdapter(store, cfg.History.KeepRuns)
		a.journal = adapter
		a.closeJournal = adapter.Close
	}
	return a, nil
}

func defaultHost(cfg *config.Config, out io.Writer, logger *slog.Logger) runtime.HostFactory {
	return starhost.New(
		starhost.WithOutput(out),
		starhost.WithLogger(logger),
		starhost.WithMaxSteps(cfg.Host.MaxSteps),
	)
}

// configure builds the lister and runtime for cfg and swaps them in.
func (a *App) configure(cfg *config.Config) error {
	lister, err := discovery.NewLister(discovery.Options{
		Extensions:   cfg.Sources.Extensions,
		ExcludeDirs:  cfg.Sources.ExcludeDirs,
		ExcludeFiles: cfg.Sources.ExcludeFiles,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidArgument, "invalid source filters")
	}

	globals := make(runtime.Globals, len(cfg.Globals))
	for name, v := range cfg.Globals {
		globals[name] = v
	}

	rt, err := runtime.New(runtime.Options{
		Host:    a.deps.Host(cfg, a.deps.Output, a.deps.Logger),
		Lister:  lister,
		Namer:   naming.NewNamer(cfg.Realms.Prefixes),
		Globals: globals,
		Logger:  a.deps.Logger,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build runtime")
	}

	a.mu.Lock()
	a.config = cfg
	a.lister = lister
	a.rt = rt
	a.mu.Unlock()
	a.limiter.SetRate(cfg.Watch.MaxReloadsPerSecond, cfg.Watch.Burst)
	return nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *App) current() (*runtime.Runtime, *config.Config) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rt, a.config
}

// ExcludesDir and Accepts delegate to the active lister so that a watcher
// keeps following filter changes from config reloads.
func (a *App) ExcludesDir(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lister.ExcludesDir(name)
}

func (a *App) Accepts(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lister.Accepts(name)
}

// ApplyConfig swaps in a reloaded configuration. Loads in flight finish on
// the old runtime first.
func (a *App) ApplyConfig(cfg *config.Config) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	prev := a.Config()
	if prev != nil && prev.BaseDir != cfg.BaseDir {
		a.deps.Logger.Warn("base_dir change takes effect on restart", "old", prev.BaseDir, "new", cfg.BaseDir)
	}
	if err := a.configure(cfg); err != nil {
		return err
	}
	a.deps.Logger.Info("configuration applied", "entry_point", cfg.EntryPoint, "base_dir", cfg.BaseDir)
	return nil
}

func (a *App) Close() error {
	if a == nil || a.closeJournal == nil {
		return nil
	}
	err := a.closeJournal()
	a.closeJournal = nil
	return err
}

// record journals a finished load. Journal failures are logged, never
// returned: a run outcome does not depend on its bookkeeping.
func (a *App) record(command, baseDir, entry string, report *runtime.Report, runErr error) {
	run := history.Run{
		ID:         uuid.NewString(),
		Command:    command,
		BaseDir:    baseDir,
		EntryPoint: entry,
		Started:    time.Now().UTC(),
		Outcome:    history.OutcomeOK,
	}
	if report != nil {
		run.ID = report.RunID
		run.Started = report.Started.UTC()
		run.Duration = report.Duration
		run.Files = report.Files
		run.Packages = len(report.Packages)
		run.Objects = report.Objects()
	}
	if runErr != nil {
		run.Outcome = history.OutcomeFailed
		run.Error = runErr.Error()
		if code, ok := errors.CodeOf(runErr); ok {
			run.ErrorCode = string(code)
		}
	}

	a.healthMu.Lock()
	a.lastRun = &run
	a.healthMu.Unlock()

	if a.journal == nil {
		return
	}
	if err := a.journal.Record(run); err != nil {
		a.deps.Logger.Warn("failed to journal run", "run_id", run.ID, "error", err)
	}
}
