package app

import (
	"context"
	"time"

	"strata/internal/core/config"
	"strata/internal/core/watcher"
	"strata/internal/shared/observability"
)

// Watch bootstraps once, then re-bootstraps whenever a source file under the
// base directory changes, until ctx is done. Failed runs are logged and the
// watch continues.
func (a *App) Watch(ctx context.Context) error {
	cfg := a.Config()

	a.reload(ctx, nil)

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, a, func(paths []string) {
		a.HandleChanges(ctx, paths)
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch([]string{cfg.BaseDir}); err != nil {
		return err
	}

	if a.ConfigPath != "" {
		cw := config.NewWatcher(a.ConfigPath, func(next *config.Config) {
			if err := a.ApplyConfig(next); err != nil {
				a.deps.Logger.Error("config reload rejected", "error", err)
				return
			}
			w.SetDebounce(next.Watch.Debounce)
		})
		if err := cw.Start(ctx); err != nil {
			a.deps.Logger.Warn("config watcher unavailable", "path", a.ConfigPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	if cfg.Observability.Enabled {
		server := observability.NewServer(cfg.Observability.Address, NewHealthService(a).Check)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	a.deps.Logger.Info("watching for changes", "base_dir", cfg.BaseDir)
	<-ctx.Done()
	return nil
}

// HandleChanges re-bootstraps after a batch of source changes, waiting on
// the reload limiter when changes arrive faster than allowed.
func (a *App) HandleChanges(ctx context.Context, paths []string) {
	a.deps.Logger.Info("detected changes", "count", len(paths))
	if !a.limiter.Allow(1) {
		observability.ReloadsThrottledTotal.Inc()
		a.deps.Logger.Debug("reload throttled", "count", len(paths))
		if err := a.limiter.Wait(ctx, 1); err != nil {
			return
		}
	}
	a.reload(ctx, paths)
}

func (a *App) reload(ctx context.Context, paths []string) {
	if ctx.Err() != nil {
		return
	}
	observability.ReloadsTotal.Inc()
	start := time.Now()
	report, err := a.bootstrap(ctx, "watch", "", "")
	if err != nil {
		a.deps.Logger.Error("reload failed", "changed", len(paths), "error", err)
		return
	}
	a.deps.Logger.Info("reload complete", "run_id", report.RunID, "changed", len(paths),
		"objects", report.Objects(), "duration", time.Since(start))
}
