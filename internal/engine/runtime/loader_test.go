package runtime

import (
	"context"
	"fmt"
	"testing"

	"strata/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ForwardReferenceSeesFinalObject(t *testing.T) {
	f := newFixture(t)
	var seen *Object
	f.file("game/a_player.star", f.class(func(obj *Object, scope *FileScope) error {
		v, err := f.rt.Import(scope, "Weapon")
		if err != nil {
			return err
		}
		seen = v.(*Object)
		assert.Equal(t, KindPlaceholder, seen.Kind(), "weapon file has not run yet")
		return obj.Set("Weapon", seen)
	}))
	f.file("game/weapon.star", f.class(func(obj *Object, _ *FileScope) error {
		return obj.Set("Damage", 10)
	}))

	_, err := f.rt.Load(context.Background(), root)
	require.NoError(t, err)

	pkg, ok := f.rt.Registry().Lookup("game")
	require.True(t, ok)
	weapon, ok := pkg.Member("Weapon")
	require.True(t, ok)
	assert.Same(t, seen, weapon)
	assert.Equal(t, KindClass, weapon.Kind())
	dmg, ok := weapon.Get("Damage")
	require.True(t, ok)
	assert.Equal(t, 10, dmg)

	player, _ := pkg.Member("APlayer")
	ref, _ := player.Get("Weapon")
	assert.Same(t, weapon, ref)
}

func TestLoad_PreRegistersPlaceholdersBeforeAnyFileRuns(t *testing.T) {
	f := newFixture(t)
	f.file("game/first.star", f.singleton(func(obj *Object, scope *FileScope) error {
		pkg := scope.Package()
		for _, name := range []string{"First", "Second", "Third"} {
			_, ok := pkg.Member(name)
			assert.True(t, ok, "placeholder %s missing", name)
		}
		v, ok := scope.Resolve("Third")
		require.True(t, ok)
		return obj.Set("Next", v)
	}))
	f.file("game/second.star", f.singleton(nil))
	f.file("game/third.star", f.singleton(nil))

	_, err := f.rt.Load(context.Background(), root)
	require.NoError(t, err)
}

func TestLoad_NestedDirectoriesBecomeDottedPackages(t *testing.T) {
	f := newFixture(t)
	f.file("main.star", f.singleton(nil))
	f.file("game/items/sh_sword.star", f.class(nil))
	f.file("game/cl_hud.star", f.class(nil))

	report, err := f.rt.Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 3, report.Objects())
	assert.NotEmpty(t, report.RunID)

	names := []string{}
	for _, p := range report.Packages {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"", "game", "game.items"}, names)

	sword, err := f.rt.Import(nil, "game.items.sh_sword")
	require.NoError(t, err)
	assert.Equal(t, "game.items.Sword", sword.(*Object).FullName())
	assert.Equal(t, StateDone, f.rt.State())
}

func TestLoad_FinalizeUnlinksAndDropsEmptyPackages(t *testing.T) {
	f := newFixture(t)
	f.lister.mkdir(root + "/empty")
	f.file("ns/inner/thing.star", f.class(nil))

	_, err := f.rt.Load(context.Background(), root)
	require.NoError(t, err)

	reg := f.rt.Registry()
	for _, name := range []string{"", "empty", "ns"} {
		_, ok := reg.Lookup(name)
		assert.False(t, ok, "package %q should be dropped", name)
	}
	pkg, ok := reg.Lookup("ns.inner")
	require.True(t, ok)
	assert.False(t, pkg.Linked())
	_, ok = pkg.Resolve("Class")
	assert.False(t, ok)
}

func TestLoad_StripsExtendsCapability(t *testing.T) {
	f := newFixture(t)
	f.file("a/base.star", f.class(func(obj *Object, _ *FileScope) error {
		assert.True(t, obj.Has(CapExtends))
		assert.True(t, obj.Has(CapNew))
		return nil
	}))
	_, err := f.rt.Load(context.Background(), root)
	require.NoError(t, err)

	v, err := f.rt.Import(nil, "a.Base")
	require.NoError(t, err)
	obj := v.(*Object)
	assert.False(t, obj.Has(CapExtends))
	assert.True(t, obj.Has(CapNew))
}

func TestLoad_FileMustReturnObject(t *testing.T) {
	f := newFixture(t)
	f.file("a/bad.star", func(*FileScope) (Value, error) { return "nope", nil })

	_, err := f.rt.Load(context.Background(), root)
	requireCode(t, err, errors.CodeInvalidObject)
	assert.Equal(t, StateFailed, f.rt.State())
}

func TestLoad_UntypedReturnIsAccepted(t *testing.T) {
	f := newFixture(t)
	f.file("a/plain.star", func(scope *FileScope) (Value, error) {
		obj, _ := scope.Object()
		return obj, obj.Set("Value", 1)
	})

	_, err := f.rt.Load(context.Background(), root)
	require.NoError(t, err)
	v, _ := f.rt.Import(nil, "a.Plain")
	assert.Equal(t, KindPlaceholder, v.(*Object).Kind())
}

func TestLoad_ExecutionFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.file("a/one.star", func(*FileScope) (Value, error) { return nil, fmt.Errorf("boom") })
	f.file("a/two.star", f.class(nil))

	_, err := f.rt.Load(context.Background(), root)
	requireCode(t, err, errors.CodeExecution)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, f.runs("a/two.star"), "fail-fast: later files must not run")
}

func TestLoad_DomainErrorsKeepTheirCode(t *testing.T) {
	f := newFixture(t)
	f.file("a/twice.star", func(scope *FileScope) (Value, error) {
		if _, err := f.rt.Class(scope); err != nil {
			return nil, err
		}
		return f.rt.Singleton(scope)
	})

	_, err := f.rt.Load(context.Background(), root)
	requireCode(t, err, errors.CodeInvalidObject)
}

func TestLoad_RealmVariantsShareOneObject(t *testing.T) {
	f := newFixture(t)
	f.file("ui/cl_hud.star", f.class(nil))
	f.file("ui/sv_hud.star", f.class(nil))

	_, err := f.rt.Load(context.Background(), root)
	requireCode(t, err, errors.CodeInvalidObject)
	assert.Contains(t, err.Error(), "ui.Hud")
	assert.Equal(t, 1, f.runs("ui/cl_hud.star"))

	pkg, ok := f.rt.Registry().Lookup("ui")
	require.True(t, ok)
	assert.Len(t, pkg.Members(), 1)
}

func TestLoad_MissingBaseDir(t *testing.T) {
	f := newFixture(t)
	_, err := f.rt.Load(context.Background(), "/nowhere")
	requireCode(t, err, errors.CodeResolution)

	_, err = f.rt.Load(context.Background(), "  ")
	requireCode(t, err, errors.CodeInvalidArgument)
}

func TestLoad_CanceledContext(t *testing.T) {
	f := newFixture(t)
	f.file("main.star", f.singleton(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rt.Load(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.runs("main.star"))
}

func TestBootstrap_InvokesMain(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.file("app/main.star", f.singleton(func(obj *Object, _ *FileScope) error {
		return obj.Set("Main", goFunc(func(args []Value) (Value, error) {
			calls++
			assert.Empty(t, args)
			return nil, nil
		}))
	}))

	report, err := f.rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "app.Main", report.EntryPoint)
	assert.Equal(t, StateDone, f.rt.State())
	assert.Equal(t, 0, f.rt.Registry().Len(), "process state is released after bootstrap")
}

func TestBootstrap_EntryPointContract(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		code  errors.ErrorCode
	}{
		{name: "class entry", entry: "app.Game", code: errors.CodeInvalidEntryPoint},
		{name: "enum entry", entry: "app.Mode", code: errors.CodeInvalidEntryPoint},
		{name: "untyped entry", entry: "app.Nothing", code: errors.CodeMissingEntryPoint},
		{name: "no main", entry: "app.Idle", code: errors.CodeNoMainMethod},
		{name: "wildcard entry", entry: "app.*", code: errors.CodeMissingEntryPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			calls := 0
			main := goFunc(func([]Value) (Value, error) {
				calls++
				return nil, nil
			})
			f.file("app/game.star", f.class(func(obj *Object, _ *FileScope) error {
				return obj.Set("Main", main)
			}))
			f.file("app/mode.star", f.enum(func(obj *Object, _ *FileScope) error {
				return obj.Set("Main", 1)
			}))
			f.file("app/idle.star", f.singleton(nil))

			_, err := f.rt.Bootstrap(context.Background(), root, tt.entry)
			requireCode(t, err, tt.code)
			assert.Equal(t, 0, calls, "Main must not run")
			assert.Equal(t, StateFailed, f.rt.State())
		})
	}
}

func TestBootstrap_MainInheritedFromSuperclass(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.file("app/base.star", f.class(func(obj *Object, _ *FileScope) error {
		return obj.Set("Main", goFunc(func([]Value) (Value, error) {
			calls++
			return nil, nil
		}))
	}))
	f.file("app/main.star", f.singleton(func(obj *Object, scope *FileScope) error {
		_, err := f.rt.Extends(scope, obj, "Base")
		return err
	}))

	_, err := f.rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBootstrap_MainFailureIsExecutionError(t *testing.T) {
	f := newFixture(t)
	f.file("app/main.star", f.singleton(func(obj *Object, _ *FileScope) error {
		return obj.Set("Main", goFunc(func([]Value) (Value, error) {
			return nil, fmt.Errorf("crashed")
		}))
	}))

	_, err := f.rt.Bootstrap(context.Background(), root, "app.Main")
	requireCode(t, err, errors.CodeExecution)
}

func TestBootstrap_RejectsEmptyArguments(t *testing.T) {
	f := newFixture(t)
	_, err := f.rt.Bootstrap(context.Background(), root, "")
	requireCode(t, err, errors.CodeInvalidArgument)

	_, err = f.rt.Bootstrap(context.Background(), "", "app.Main")
	requireCode(t, err, errors.CodeInvalidArgument)
}

func TestBootstrap_SecondRunStartsClean(t *testing.T) {
	f := newFixture(t)
	f.file("old/thing.star", f.class(nil))
	f.file("app/main.star", f.singleton(func(obj *Object, scope *FileScope) error {
		return obj.Set("Main", goFunc(func([]Value) (Value, error) { return nil, nil }))
	}))

	_, err := f.rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)

	second := newMemLister("/other")
	f.rt.lister = second
	f.host.units["/other/app/main.star"] = f.singleton(func(obj *Object, scope *FileScope) error {
		_, leaked := f.rt.Registry().Lookup("old")
		assert.False(t, leaked, "package from the first bootstrap leaked")
		return obj.Set("Main", goFunc(func([]Value) (Value, error) { return nil, nil }))
	})
	second.add("/other/app/main.star")

	_, err = f.rt.Bootstrap(context.Background(), "/other", "app.Main")
	require.NoError(t, err)
	assert.Equal(t, 1, f.host.runs["/other/app/main.star"])
}

func TestBootstrap_FailureLeavesRegistryForInspection(t *testing.T) {
	f := newFixture(t)
	f.file("app/game.star", f.class(nil))

	_, err := f.rt.Bootstrap(context.Background(), root, "app.Game")
	requireCode(t, err, errors.CodeInvalidEntryPoint)
	_, ok := f.rt.Registry().Lookup("app")
	assert.True(t, ok)

	// the next load starts from scratch regardless
	f.file("app/main.star", f.singleton(func(obj *Object, _ *FileScope) error {
		return obj.Set("Main", goFunc(func([]Value) (Value, error) { return nil, nil }))
	}))
	_, err = f.rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, 2, f.runs("app/game.star"))
}
