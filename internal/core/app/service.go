package app

import (
	"context"
	"strings"

	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/engine/runtime"
	"strata/internal/shared/observability"
	"strata/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type runtimeService struct {
	app *App
}

var _ ports.RuntimeService = (*runtimeService)(nil)

func NewRuntimeService(app *App) ports.RuntimeService {
	return &runtimeService{app: app}
}

func (a *App) RuntimeService() ports.RuntimeService {
	return NewRuntimeService(a)
}

func (s *runtimeService) Run(ctx context.Context, req ports.RunRequest) (*runtime.Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "runtimeService.Run")
	defer span.End()

	if s.app == nil {
		return nil, errors.New(errors.CodeInternal, "app is required")
	}
	return s.app.bootstrap(ctx, "run", req.BaseDir, req.EntryPoint)
}

func (s *runtimeService) Inspect(ctx context.Context, req ports.InspectRequest) (*runtime.Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "runtimeService.Inspect")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil {
		return nil, errors.New(errors.CodeInternal, "app is required")
	}

	s.app.runMu.Lock()
	defer s.app.runMu.Unlock()

	rt, cfg := s.app.current()
	baseDir := firstNonBlank(req.BaseDir, cfg.BaseDir)
	span.SetAttributes(attribute.String("base_dir", baseDir))
	report, err := rt.Load(ctx, baseDir)
	if err != nil {
		return report, errors.AddContext(err, errors.CtxOperation, "inspect")
	}
	return report, nil
}

func (s *runtimeService) Watch(ctx context.Context) error {
	if s.app == nil {
		return errors.New(errors.CodeInternal, "app is required")
	}
	return s.app.Watch(ctx)
}

func (s *runtimeService) History(ctx context.Context, limit int) (ports.HistoryResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.HistoryResult{}, err
	}
	if s.app == nil {
		return ports.HistoryResult{}, errors.New(errors.CodeInternal, "app is required")
	}
	if s.app.journal == nil {
		return ports.HistoryResult{}, errors.New(errors.CodeNotFound, "run history is disabled; set [history] enabled = true")
	}

	runs, err := s.app.journal.Recent(limit)
	if err != nil {
		return ports.HistoryResult{}, errors.Wrap(err, errors.CodeInternal, "load run history")
	}
	summary, err := s.app.journal.Summarize()
	if err != nil {
		return ports.HistoryResult{}, errors.Wrap(err, errors.CodeInternal, "summarize run history")
	}
	return ports.HistoryResult{Runs: runs, Summary: summary}, nil
}

// bootstrap runs one full load + Main invocation and journals the outcome.
func (a *App) bootstrap(ctx context.Context, command, baseDir, entry string) (*runtime.Report, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	rt, cfg := a.current()
	baseDir = firstNonBlank(baseDir, cfg.BaseDir)
	entry = firstNonBlank(entry, cfg.EntryPoint)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("command", command),
		attribute.String("entry_point", entry),
	)

	report, err := rt.Bootstrap(ctx, baseDir, entry)
	a.record(command, baseDir, entry, report, err)
	if err != nil {
		return report, errors.AddContext(err, errors.CtxOperation, command)
	}
	a.deps.Logger.Debug("run finished", "run_id", report.RunID, "heap_mb", util.HeapAllocMB())
	return report, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
