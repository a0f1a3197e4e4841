package starhost

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"strata/internal/core/errors"
	"strata/internal/engine/discovery"
	"strata/internal/engine/runtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, src := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	}
	return root
}

func newRuntime(t *testing.T, out io.Writer, opts ...Option) *runtime.Runtime {
	t.Helper()
	lister, err := discovery.NewLister(discovery.Options{Extensions: []string{Extension}})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := runtime.New(runtime.Options{
		Host:    New(append([]Option{WithOutput(out), WithLogger(logger)}, opts...)...),
		Lister:  lister,
		Globals: runtime.Globals{"GREETING": "hello"},
		Logger:  logger,
	})
	require.NoError(t, err)
	return rt
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := errors.CodeOf(err)
	require.True(t, ok, "error carries no code: %v", err)
	require.Equal(t, code, got, "error: %v", err)
}

const zooAnimal = `
Animal = Class()
Animal.legs = 4

def init(self, name):
    self.name = name

def speak(self):
    return "..."

Animal.Init = init
Animal.Speak = speak
`

const zooCat = `
Cat = Class()
Cat.Extends("Animal")

def speak(self):
    return "meow " + self.name

Cat.Speak = speak
`

const gfxColor = `
Color = Enum()
Color.RED = 1
Color.GREEN = 2
`

const appMain = `
Main = Singleton()
zoo = Import("zoo.*")
Dog = Import("zoo.Dog")
Cat = Import("zoo.Cat")
Color = Import("gfx.Color")

def main():
    dog = Dog.New("rex")
    cat = Cat.New("tom")
    print(GREETING, len(zoo))
    print(dog.Speak())
    print(cat.Speak())
    print(dog.name, dog.legs)
    print(Color.RED.GetValue(), Color.RED < Color.GREEN, Color.RED + Color.GREEN)
    print(Color.GetValueOf("GREEN").GetName(), len(Color.GetValues()))

Main.Main = main
`

func TestHost_BootstrapsTree(t *testing.T) {
	root := writeSources(t, map[string]string{
		"app/main.star":   appMain,
		"gfx/color.star":  gfxColor,
		"zoo/animal.star": zooAnimal,
		"zoo/cat.star":    zooCat,
		"zoo/dog.star":    `Dog = Extends(Class(), "Animal")`,
		"zoo/README.md":   "not a source file",
	})
	var out bytes.Buffer
	rt := newRuntime(t, &out)

	report, err := rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Files)
	assert.Equal(t, "hello 3\n...\nmeow tom\nrex 4\n1 True 3\nGREEN 2\n", out.String())
}

func TestHost_ImportedNamesResolveWithoutAssignment(t *testing.T) {
	root := writeSources(t, map[string]string{
		"zoo/animal.star": zooAnimal,
		"zoo/cat.star":    zooCat,
		"gfx/color.star":  gfxColor,
		"app/main.star": `
Main = Singleton()
Import("zoo.*")

def main():
    Import("gfx.Color")
    print(Animal.legs, Cat.New("tom").Speak(), Color.GREEN.GetName())

Main.Main = main
`,
	})
	var out bytes.Buffer
	rt := newRuntime(t, &out)

	_, err := rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, "4 meow tom GREEN\n", out.String())
}

func TestHost_ObjectMetadata(t *testing.T) {
	root := writeSources(t, map[string]string{
		"zoo/animal.star": zooAnimal,
		"gfx/color.star":  gfxColor,
		"app/main.star": `
Main = Singleton()
Animal = Import("zoo.Animal")
Color = Import("gfx.Color")

def main():
    print(Animal.name, Animal.package, Animal.type, type(Animal))
    print(Color.type, Main.type, Main.package)
    print(dir(Animal))

Main.Main = main
`,
	})
	var out bytes.Buffer
	rt := newRuntime(t, &out)

	_, err := rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, "Animal zoo Class class\n"+
		"Enum Singleton app\n"+
		`["Init", "New", "Speak", "legs", "name", "package", "type"]`+"\n", out.String())
}

func TestHost_HelpersKeepTheirFilePackage(t *testing.T) {
	root := writeSources(t, map[string]string{
		"app/main.star": `
Main = Singleton()

def main():
    print(Import("Helper").Describe())

Main.Main = main
`,
		"app/helper.star": `
Helper = Singleton()

def describe():
    return "helper from " + PACKAGE

Helper.Describe = describe
PACKAGE = "app"
`,
	})
	var out bytes.Buffer
	rt := newRuntime(t, &out)

	_, err := rt.Bootstrap(context.Background(), root, "app.Main")
	require.NoError(t, err)
	assert.Equal(t, "helper from app\n", out.String())
}

func TestHost_ObjectsShareIdentity(t *testing.T) {
	root := writeSources(t, map[string]string{
		"a/first.star": `
First = Singleton()
First.other = Import("b.Second")
`,
		"b/second.star": `
Second = Singleton()
Second.same = Import("b.Second") == Second
`,
	})
	rt := newRuntime(t, io.Discard)

	_, err := rt.Load(context.Background(), root)
	require.NoError(t, err)

	first, err := rt.Import(nil, "a.First")
	require.NoError(t, err)
	second, err := rt.Import(nil, "b.Second")
	require.NoError(t, err)
	other, _ := first.(*runtime.Object).Get("other")
	assert.Same(t, second, other)
	same, _ := second.(*runtime.Object).Get("same")
	assert.Equal(t, true, same)
}

func TestHost_UnassignedConstructorStillDefinesObject(t *testing.T) {
	root := writeSources(t, map[string]string{
		"a/config.star": "Singleton()\n",
	})
	rt := newRuntime(t, io.Discard)

	_, err := rt.Load(context.Background(), root)
	require.NoError(t, err)
	v, _ := rt.Import(nil, "a.Config")
	assert.Equal(t, runtime.KindSingleton, v.(*runtime.Object).Kind())
}

func TestHost_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.ErrorCode
	}{
		{name: "no object", src: "x = 1\n", code: errors.CodeInvalidObject},
		{name: "non object global", src: "Broken = 42\n", code: errors.CodeInvalidObject},
		{name: "syntax error", src: "Broken = (\n", code: errors.CodeExecution},
		{name: "script failure", src: "Broken = Class()\nfail(\"nope\")\n", code: errors.CodeExecution},
		{name: "second constructor", src: "Broken = Class()\nAgain = Singleton()\n", code: errors.CodeInvalidObject},
		{name: "bad import", src: "Broken = Class()\nImport(3)\n", code: errors.CodeInvalidArgument},
		{name: "undefined name", src: "Broken = Class()\nprint(Missing)\n", code: errors.CodeExecution},
		{name: "raw enum members", src: "Broken = Enum()\nBroken.A = 1\n", code: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeSources(t, map[string]string{"pkg/broken.star": tt.src})
			rt := newRuntime(t, io.Discard)
			_, err := rt.Load(context.Background(), root)
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, tt.code)
		})
	}
}

func TestHost_FinalizedEnumRejectsAssignment(t *testing.T) {
	root := writeSources(t, map[string]string{
		"gfx/color.star": gfxColor,
		"app/main.star": `
Main = Singleton()
Color = Import("gfx.Color")

def main():
    Color.RED = 5

Main.Main = main
`,
	})
	rt := newRuntime(t, io.Discard)

	_, err := rt.Bootstrap(context.Background(), root, "app.Main")
	requireCode(t, err, errors.CodeInvalidObject)
}

func TestHost_MaxSteps(t *testing.T) {
	root := writeSources(t, map[string]string{
		"pkg/spin.star": `
Spin = Singleton()

def forever():
    while True:
        pass

forever()
`,
	})
	rt := newRuntime(t, io.Discard, WithMaxSteps(10000))

	_, err := rt.Load(context.Background(), root)
	requireCode(t, err, errors.CodeExecution)
}

func TestHost_CallRejectsNonCallable(t *testing.T) {
	rt := newRuntime(t, io.Discard)
	_, err := rt.Host().Call("nope", nil)
	require.Error(t, err)
}
