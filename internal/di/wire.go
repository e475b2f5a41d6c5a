// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/extrato-relay/internal/config"
	"github.com/aristath/extrato-relay/internal/delivery"
	"github.com/aristath/extrato-relay/internal/events"
	"github.com/aristath/extrato-relay/internal/identifier"
	"github.com/aristath/extrato-relay/internal/relay"
	"github.com/aristath/extrato-relay/internal/scheduler"
	"github.com/aristath/extrato-relay/internal/server"
	"github.com/aristath/extrato-relay/internal/source"
	"github.com/aristath/extrato-relay/internal/statement"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Build the pipeline (lister, parser, client, dispatcher, runner)
// 2. Build the scheduler and register jobs
// 3. Build the status server when enabled
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	container := &Container{
		RunContext: runCtx,
		cancel:     cancel,
	}

	// Step 1: Pipeline
	if err := InitializePipeline(container, cfg, log); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	// Step 2: Scheduler and jobs
	container.Scheduler = scheduler.New(cfg.ScheduleLocation, log)
	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	// Step 3: Status server
	if cfg.StatusPort > 0 {
		container.Server = server.New(server.Config{
			Log:          log,
			Port:         cfg.StatusPort,
			Runs:         container.Runner,
			Events:       container.Events,
			Schedule:     container.Scheduler,
			Destinations: len(cfg.DestinationURLs),
			RunContext:   runCtx,
		})
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}

// InitializePipeline builds the components of one relay run.
func InitializePipeline(container *Container, cfg *config.Config, log zerolog.Logger) error {
	strategy, err := identifier.FromName(cfg.IdentifierStrategy)
	if err != nil {
		return err
	}

	container.Events = events.NewManager(log)

	container.Lister = source.NewLister(source.Config{
		Dir:          cfg.OFXDir,
		Marker:       cfg.FileMarker,
		LookbackDays: cfg.LookbackDays,
		Location:     cfg.ScheduleLocation,
	}, log)

	container.Parser = statement.New(statement.Options{
		Strategy:           strategy,
		Location:           cfg.ReadLocation,
		LegacyHeaderBranch: cfg.LegacyHeaderBranch,
	}, log)

	container.Client = delivery.NewClient(cfg.IngestPath, cfg.RequestTimeout, log)

	container.Dispatcher = delivery.NewDispatcher(delivery.DispatcherConfig{
		Destinations:         cfg.DestinationURLs,
		DelayBetweenServices: cfg.DelayBetweenServices,
		DelayBetweenBatches:  cfg.DelayBetweenBatches,
	}, container.Client, container.Events, log)

	container.Runner = relay.NewRunner(
		container.Lister,
		container.Parser,
		container.Dispatcher,
		container.Events,
		cfg.BatchSize,
		log,
	)

	log.Info().
		Str("dir", cfg.OFXDir).
		Strs("destinations", cfg.DestinationURLs).
		Int("batch_size", cfg.BatchSize).
		Str("identifier", strategy.Name()).
		Msg("Pipeline initialized")

	return nil
}
