package runtime

import (
	goerrors "errors"
	"io/fs"
	"path/filepath"
	"time"

	"strata/internal/core/errors"
	"strata/internal/engine/naming"
	"strata/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// loadDirectory prepares and loads the package of dir. A package whose files
// already ran (or are running) is not loaded again. Import mode stops
// before subdirectories.
func (rt *Runtime) loadDirectory(dir string, importMode bool) error {
	ctx, span := observability.Tracer.Start(rt.ctx, "runtime.loadDirectory", trace.WithAttributes(
		attribute.String("dir", dir),
		attribute.Bool("import_mode", importMode),
	))
	defer span.End()
	prevCtx := rt.ctx
	rt.ctx = ctx
	defer func() { rt.ctx = prevCtx }()

	pkgName := naming.PackageName(rt.baseDir, dir)
	files, dirs, err := rt.lister.List(dir)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return errors.AddContext(
				errors.Wrap(err, errors.CodeResolution, "package directory not found"),
				errors.CtxPackage, pkgName)
		}
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "list directory"), errors.CtxPath, dir)
	}

	pkg := rt.registry.GetPackage(pkgName)
	if !pkg.loaded {
		if err := rt.preparePackage(pkg, files); err != nil {
			return err
		}
		pkg.loaded = true
		for _, f := range files {
			if err := rt.loadFile(pkg, filepath.Join(dir, f)); err != nil {
				return err
			}
		}
		observability.PackagesLoadedTotal.Inc()
		rt.logger.Debug("package loaded", "package", pkgName, "files", len(files), "import_mode", importMode)
	}

	if importMode {
		return nil
	}
	for _, sub := range dirs {
		if err := rt.loadDirectory(filepath.Join(dir, sub), false); err != nil {
			return err
		}
	}
	return nil
}

// preparePackage registers a placeholder for every file so that any file in
// the tree can reference it before its own source runs.
func (rt *Runtime) preparePackage(pkg *Package, files []string) error {
	rt.state = StatePreparingPackage
	for _, f := range files {
		name, err := rt.namer.FileObjectName(f)
		if err != nil {
			return errors.AddContext(err, errors.CtxPath, f)
		}
		pkg.ensureObject(name)
	}
	return nil
}

func (rt *Runtime) loadFile(pkg *Package, path string) error {
	_, span := observability.Tracer.Start(rt.ctx, "runtime.loadFile", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("package", pkg.name),
	))
	defer span.End()
	start := time.Now()
	rt.state = StateLoadingFile

	name, err := rt.namer.FileObjectName(path)
	if err != nil {
		return errors.AddContext(err, errors.CtxPath, path)
	}
	placeholder := pkg.ensureObject(name)

	unit, err := rt.host.Compile(path)
	if err != nil {
		return fileError(err, "compile failed", path)
	}

	scope := NewFileScope(pkg, name)
	prev := rt.current
	rt.current = scope
	result, err := unit.Run(scope)
	rt.current = prev
	if err != nil {
		return fileError(err, "execution failed", path)
	}

	obj, ok := result.(*Object)
	if !ok || obj == nil {
		return errors.AddContext(
			errors.Newf(errors.CodeInvalidObject, "file returned %T, expected an object", result),
			errors.CtxPath, path)
	}
	if err := placeholder.mergeFrom(obj); err != nil {
		return errors.AddContext(err, errors.CtxPath, path)
	}
	placeholder.caps &^= CapExtends
	if placeholder.kind == KindEnum {
		if err := FinalizeEnum(placeholder); err != nil {
			return errors.AddContext(err, errors.CtxPath, path)
		}
	}

	rt.files++
	observability.FilesLoadedTotal.Inc()
	observability.FileLoadDuration.Observe(time.Since(start).Seconds())
	rt.logger.Debug("file loaded", "path", path, "object", placeholder.FullName(), "kind", placeholder.kind.String())
	return nil
}

// fileError keeps domain codes raised inside a file and classifies anything
// else as an execution failure.
func fileError(err error, msg, path string) error {
	if _, ok := errors.CodeOf(err); !ok {
		err = errors.Wrap(err, errors.CodeExecution, msg)
	}
	return errors.AddContext(err, errors.CtxPath, path)
}

// finalize unlinks every package from the base environment, finalizes any
// enum left raw and drops packages without public members.
func (rt *Runtime) finalize() error {
	rt.state = StateFinalizing
	rt.registry.Seal()
	for _, pkg := range rt.registry.Packages() {
		for _, obj := range pkg.Members() {
			if obj.kind == KindEnum && !obj.finalized {
				if err := FinalizeEnum(obj); err != nil {
					return err
				}
			}
		}
		if len(pkg.PublicMembers()) == 0 {
			rt.registry.Delete(pkg.name)
			rt.logger.Debug("empty package dropped", "package", pkg.name)
		}
	}
	return nil
}
