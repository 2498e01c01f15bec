package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/docgraphgo/internal/config"
	"github.com/vk/docgraphgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Configuration problems are fatal startup errors and panic; callers at
// the binary boundary recover and exit cleanly.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	model, err := config.Load(appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline configuration: %w", err))
	}
	logger.Debug("Pipeline configuration loaded.", "workflow", model.Name)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All stage modules registered.", "modules", len(modules), "stages", len(reg.Definitions()))

	// Per-critic configuration must name critics that actually exist;
	// a typo here would otherwise silently configure nothing.
	for id, critic := range model.Critics {
		if !reg.SetCriticBlocking(id, critic.Blocking) {
			panic(fmt.Errorf("pipeline configuration names unknown critic %q", id))
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline configuration.
func (a *App) Model() *config.Model {
	return a.model
}
