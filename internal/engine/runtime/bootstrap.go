package runtime

import (
	"context"
	"strings"
	"time"

	"strata/internal/core/errors"
	"strata/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Report summarizes a load.
type Report struct {
	RunID      string
	BaseDir    string
	EntryPoint string
	Started    time.Time
	Duration   time.Duration
	Files      int
	Packages   []PackageReport
}

type PackageReport struct {
	Name    string
	Objects []ObjectReport
}

type ObjectReport struct {
	Name    string
	Kind    Kind
	Super   string
	Members []string
}

// Objects counts the objects over every package.
func (r *Report) Objects() int {
	n := 0
	for _, p := range r.Packages {
		n += len(p.Objects)
	}
	return n
}

// Load walks baseDir, executes every file and finalizes the registry without
// invoking an entry point. The loaded registry stays available until the
// next Load or Bootstrap.
func (rt *Runtime) Load(ctx context.Context, baseDir string) (*Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "runtime.Load", trace.WithAttributes(attribute.String("base_dir", baseDir)))
	defer span.End()

	report, err := rt.load(ctx, baseDir)
	if err != nil {
		rt.fail(span, err)
		return report, err
	}
	rt.state = StateDone
	return report, nil
}

// Bootstrap loads baseDir, then invokes Main on the singleton at entryPoint.
// On success every piece of loader state is released so a later bootstrap
// starts from an empty registry.
func (rt *Runtime) Bootstrap(ctx context.Context, baseDir, entryPoint string) (*Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "runtime.Bootstrap", trace.WithAttributes(
		attribute.String("base_dir", baseDir),
		attribute.String("entry_point", entryPoint),
	))
	defer span.End()

	if strings.TrimSpace(entryPoint) == "" {
		err := errors.New(errors.CodeInvalidArgument, "entry point location must not be empty")
		rt.fail(span, err)
		return nil, err
	}

	report, err := rt.load(ctx, baseDir)
	if err != nil {
		rt.fail(span, err)
		return report, err
	}
	report.EntryPoint = entryPoint
	span.SetAttributes(attribute.String("run_id", report.RunID))

	if err := rt.invoke(entryPoint); err != nil {
		err = errors.AddContext(err, errors.CtxLocation, entryPoint)
		report.Duration = time.Since(report.Started)
		rt.fail(span, err)
		return report, err
	}

	report.Duration = time.Since(report.Started)
	observability.BootstrapsTotal.WithLabelValues("ok").Inc()
	observability.BootstrapDuration.Observe(report.Duration.Seconds())
	rt.logger.Info("bootstrap complete", "run_id", report.RunID, "entry_point", entryPoint,
		"packages", len(report.Packages), "files", report.Files, "duration", report.Duration)

	rt.state = StateDone
	rt.reset()
	return report, nil
}

func (rt *Runtime) load(ctx context.Context, baseDir string) (*Report, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New(errors.CodeInvalidArgument, "base directory must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rt.reset()
	rt.state = StateIdle
	rt.ctx = ctx
	rt.baseDir = baseDir
	rt.runID = uuid.NewString()
	report := &Report{RunID: rt.runID, BaseDir: baseDir, Started: time.Now()}
	rt.logger.Debug("load started", "run_id", rt.runID, "base_dir", baseDir)

	if err := rt.loadDirectory(baseDir, false); err != nil {
		report.Duration = time.Since(report.Started)
		return report, err
	}
	if err := rt.finalize(); err != nil {
		report.Duration = time.Since(report.Started)
		return report, err
	}

	report.Files = rt.files
	report.Packages = rt.snapshot()
	report.Duration = time.Since(report.Started)
	return report, nil
}

func (rt *Runtime) invoke(entryPoint string) error {
	rt.state = StateInvoking
	v, err := rt.Import(nil, entryPoint)
	if err != nil {
		return err
	}
	entry, ok := v.(*Object)
	if !ok || entry.kind == KindPlaceholder {
		return errors.Newf(errors.CodeMissingEntryPoint, "entry point %q has no type", entryPoint)
	}
	if entry.kind != KindSingleton {
		return errors.Newf(errors.CodeInvalidEntryPoint, "entry point %s is a %s, expected a Singleton", entry.FullName(), entry.kind)
	}
	main, ok := ResolveMember(entry, "Main")
	if !ok {
		return errors.Newf(errors.CodeNoMainMethod, "entry point %s has no Main member", entry.FullName())
	}
	rt.logger.Debug("invoking entry point", "object", entry.FullName())
	if _, err := rt.host.Call(main, nil); err != nil {
		return fileError(err, "Main failed", entry.FullName())
	}
	return nil
}

func (rt *Runtime) fail(span trace.Span, err error) {
	rt.state = StateFailed
	rt.current = nil
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	observability.BootstrapsTotal.WithLabelValues("failed").Inc()
	rt.logger.Error("load failed", "run_id", rt.runID, "error", err)
}

func (rt *Runtime) snapshot() []PackageReport {
	pkgs := rt.registry.Packages()
	out := make([]PackageReport, 0, len(pkgs))
	for _, pkg := range pkgs {
		pr := PackageReport{Name: pkg.name}
		for _, obj := range pkg.Members() {
			or := ObjectReport{Name: obj.name, Kind: obj.kind, Members: obj.Keys()}
			if obj.super != nil {
				or.Super = obj.super.FullName()
			}
			pr.Objects = append(pr.Objects, or)
		}
		out = append(out, pr)
	}
	return out
}
