package app

import (
	"context"
	"fmt"

	"github.com/vk/docgraphgo/internal/budget"
	"github.com/vk/docgraphgo/internal/config"
	"github.com/vk/docgraphgo/internal/ctxlog"
	"github.com/vk/docgraphgo/internal/engine"
	"github.com/vk/docgraphgo/internal/snapshot"
	"github.com/vk/docgraphgo/internal/state"
)

// Run executes one pipeline run based on the loaded configuration and
// returns the engine's result alongside any fatal error.
func (a *App) Run(ctx context.Context, appConfig *Config) (*engine.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		go a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	sink, err := newSink(a.model.Snapshots)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot sink: %w", err)
	}
	snaps := snapshot.NewLogger(sink)
	defer func() {
		if err := snaps.Close(); err != nil {
			a.logger.Warn("Failed to close snapshot sink.", "error", err)
		}
	}()

	governor := budget.NewGovernor(a.model.GlobalRetryBudget, a.model.CriticBudgets())

	workers := a.model.Workers
	if appConfig.Workers > 0 {
		workers = appConfig.Workers
	}
	disabled := make(map[string]bool)
	for id, critic := range a.model.Critics {
		if !critic.Enabled {
			disabled[id] = true
		}
	}

	eng, err := engine.New(ctx, a.registry, state.Update(a.model.Seed), snaps, governor, engine.Options{
		Workers:         workers,
		DisabledCritics: disabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build stage graph: %w", err)
	}

	a.logger.Info("🚀 Starting pipeline run.", "workflow", a.model.Name, "workers", workers)
	result, runErr := eng.Run(ctx)
	if result != nil && snaps.Dropped() > 0 {
		a.logger.Warn("Audit trail is incomplete.", "droppedSnapshots", snaps.Dropped())
	}

	a.logger.Debug("App.Run method finished.")
	return result, runErr
}

// newSink constructs the configured snapshot storage backend.
func newSink(cfg config.SnapshotConfig) (snapshot.Sink, error) {
	switch cfg.Sink {
	case config.SinkMemory:
		return snapshot.NewMemorySink(), nil
	case config.SinkJSONL:
		return snapshot.NewJSONLSink(cfg.Path)
	case config.SinkBadger:
		return snapshot.NewBadgerSink(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown snapshot sink %q", cfg.Sink)
	}
}
