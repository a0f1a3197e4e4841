package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"strata/internal/core/config"
	"strata/internal/core/ports"
	"strata/internal/shared/observability"

	"github.com/spf13/cobra"
)

const defaultConfigName = config.DefaultFile

// Run executes the CLI and returns the process exit code.
func Run(args []string) int {
	return run(args, coreRuntimeFactory{}, os.Stdout, os.Stderr)
}

func run(args []string, factory runtimeFactory, stdout, stderr io.Writer) int {
	opts := &cliOptions{}
	root := newRootCmd(opts, factory, stdout, stderr)
	root.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("error: ")+err.Error())
		return 1
	}
	return 0
}

func configureLogging(verbose bool, w io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// loadConfig loads path when given. Otherwise ./strata.toml is used when
// present and the environment alone when it is not.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidate := filepath.Join(cwd, defaultConfigName)
	cfg, err := config.Load(candidate)
	if err == nil {
		return cfg, candidate, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", err
	}
	slog.Debug("no config file found, using defaults", "path", candidate)
	cfg, err = config.FromEnv(cwd)
	if err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func applyOptions(opts *cliOptions, cfg *config.Config, cwd string) {
	if strings.TrimSpace(opts.baseDir) != "" {
		cfg.BaseDir = config.ResolveRelative(cwd, opts.baseDir)
	}
}

// withRuntime loads configuration, sets up logging and tracing and hands a
// runtime service to fn.
func withRuntime(cmd *cobra.Command, opts *cliOptions, factory runtimeFactory, fn func(ctx context.Context, svc ports.RuntimeService, cfg *config.Config) error) error {
	configureLogging(opts.verbose, cmd.ErrOrStderr())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("detect working directory: %w", err)
	}
	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOptions(opts, cfg, cwd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Debug("tracer shutdown failed", "error", err)
			}
		}()
	}

	svc, closeFn, err := initializeRuntime(cfg, cfgPath, cmd.OutOrStdout(), factory)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn != nil {
			if err := closeFn(); err != nil {
				slog.Warn("failed to close runtime", "error", err)
			}
		}
	}()
	return fn(ctx, svc, cfg)
}

func runRun(cmd *cobra.Command, opts *cliOptions, factory runtimeFactory) error {
	return withRuntime(cmd, opts, factory, func(ctx context.Context, svc ports.RuntimeService, _ *config.Config) error {
		report, err := svc.Run(ctx, ports.RunRequest{EntryPoint: opts.entryPoint})
		if err != nil {
			return err
		}
		slog.Debug("run summary", "run_id", report.RunID, "objects", report.Objects(), "duration", report.Duration)
		return nil
	})
}

func runInspect(cmd *cobra.Command, opts *cliOptions, factory runtimeFactory) error {
	return withRuntime(cmd, opts, factory, func(ctx context.Context, svc ports.RuntimeService, _ *config.Config) error {
		report, err := svc.Inspect(ctx, ports.InspectRequest{})
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
		return err
	})
}

func runWatch(cmd *cobra.Command, opts *cliOptions, factory runtimeFactory) error {
	return withRuntime(cmd, opts, factory, func(ctx context.Context, svc ports.RuntimeService, _ *config.Config) error {
		return svc.Watch(ctx)
	})
}

func runHistory(cmd *cobra.Command, opts *cliOptions, factory runtimeFactory) error {
	return withRuntime(cmd, opts, factory, func(ctx context.Context, svc ports.RuntimeService, _ *config.Config) error {
		res, err := svc.History(ctx, opts.limit)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), renderHistory(res))
		return err
	})
}
