package integration

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/data/history"
	"strata/internal/shared/observability"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, tmpDir string) {
	files := map[string]string{
		config.DefaultFile: `
entry_point = "game.Main"

[history]
enabled = true
path = ".strata/history.db"

[globals]
TITLE = "arena"
ROUNDS = 2
`,
		"src/zoo/animal.star": `
Animal = Class()
Animal.sound = "..."

def init(self, name):
    self.name = name

def describe(self):
    return self.name + " says " + self.sound

Animal.Init = init
Animal.Describe = describe
`,
		"src/zoo/sh_cat.star": `
Cat = Extends(Class(), "Animal")
Cat.sound = "meow"
`,
		"src/zoo/dog.star": `
Dog = Class()
Dog.Extends("zoo.Animal")
Dog.sound = "woof"
`,
		"src/gfx/color.star": `
Color = Enum()
Color.RED = 1
Color.GREEN = 2
Color.BLUE = 4
`,
		"src/game/main.star": `
Main = Singleton()
Rules = Import("Rules")
Color = Import("gfx.Color")

def main():
    animals = Import("zoo.*")
    print(TITLE, len(animals), Rules.Limit())
    for a in animals:
        if a.sound != "...":
            print(a.New("rex").Describe())
    print((Color.RED + Color.BLUE), Color.GetValueOf("GREEN").GetName())

Main.Main = main
`,
		"src/game/rules.star": `
Rules = Singleton()

def limit():
    return ROUNDS * 10

Rules.Limit = limit
`,
	}
	for name, content := range files {
		p := filepath.Join(tmpDir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	cfg, err := config.Load(filepath.Join(tmpDir, config.DefaultFile))
	require.NoError(t, err)

	var out bytes.Buffer
	appInstance, err := app.NewWithDependencies(cfg, app.Dependencies{
		Output: &out,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	defer appInstance.Close()

	filesBefore := counterValue(t, observability.FilesLoadedTotal)

	svc := appInstance.RuntimeService()
	ctx := context.Background()
	report, err := svc.Run(ctx, ports.RunRequest{})
	require.NoError(t, err)

	assert.Equal(t, "arena 3 20\nrex says woof\nrex says meow\n5 GREEN\n", out.String())
	assert.Equal(t, 6, report.Files)
	assert.Equal(t, 6, report.Objects())
	assert.GreaterOrEqual(t, counterValue(t, observability.FilesLoadedTotal)-filesBefore, float64(6))

	// Verify the package tree
	inspect, err := svc.Inspect(ctx, ports.InspectRequest{})
	require.NoError(t, err)
	supers := map[string]string{}
	for _, pkg := range inspect.Packages {
		for _, obj := range pkg.Objects {
			supers[pkg.Name+"."+obj.Name] = obj.Super
		}
	}
	assert.Equal(t, "zoo.Animal", supers["zoo.Cat"])
	assert.Equal(t, "zoo.Animal", supers["zoo.Dog"])
	assert.Contains(t, supers, "game.Rules")

	// A broken entry point is journaled next to the good run
	_, err = svc.Run(ctx, ports.RunRequest{EntryPoint: "gfx.Color"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidEntryPoint), "unexpected error: %v", err)

	res, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, res.Runs, 2)
	assert.Equal(t, history.OutcomeFailed, res.Runs[0].Outcome)
	assert.Equal(t, report.RunID, res.Runs[1].ID)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.FileExists(t, filepath.Join(tmpDir, ".strata", "history.db"))
}
