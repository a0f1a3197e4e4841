package cli

import (
	"fmt"
	"io"

	coreapp "strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/core/ports"
)

type runtimeFactory interface {
	New(cfg *config.Config, configPath string, out io.Writer) (ports.RuntimeService, func() error, error)
}

type coreRuntimeFactory struct{}

func (coreRuntimeFactory) New(cfg *config.Config, configPath string, out io.Writer) (ports.RuntimeService, func() error, error) {
	app, err := coreapp.NewWithDependencies(cfg, coreapp.Dependencies{Output: out})
	if err != nil {
		return nil, nil, err
	}
	app.ConfigPath = configPath
	return app.RuntimeService(), app.Close, nil
}

func initializeRuntime(cfg *config.Config, configPath string, out io.Writer, factory runtimeFactory) (ports.RuntimeService, func() error, error) {
	if factory == nil {
		return nil, nil, fmt.Errorf("runtime factory is required")
	}
	return factory.New(cfg, configPath, out)
}
