// Package main provides the Warden Engine: ingest sources feeding the
// workflow orchestrator through the event bus.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/wardenhq/warden/pkg/channels/kafka"
	"github.com/wardenhq/warden/pkg/engine"
	"github.com/wardenhq/warden/pkg/eventbus"
	"github.com/wardenhq/warden/pkg/events"
	"github.com/wardenhq/warden/pkg/ingest"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/registry"
)

// EngineConfig selects which ingest sources the engine runs. Sources are
// optional; an engine with none still processes events published through
// the API ingestion endpoint.
type EngineConfig struct {
	RedisURL      string
	IngestQueue   string
	IngestTopic   string
	EventBusType  string
	SchedulesFile string
}

type Engine struct {
	id           string
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	registry     *registry.Registry
	sources      []ingest.Source
	orchestrator *engine.Orchestrator
}

func NewEngine(
	id string,
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
	config EngineConfig,
) (*Engine, error) {
	e := &Engine{
		id:           id,
		logger:       logger,
		persistence:  p,
		eventBus:     eventBus,
		registry:     reg,
		orchestrator: engine.NewOrchestrator(p, eventBus, reg, logger),
	}

	if config.RedisURL != "" && config.IngestQueue != "" {
		source, err := ingest.NewQueueSource(logger, config.RedisURL, config.IngestQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue ingest source: %w", err)
		}

		e.sources = append(e.sources, source)
	}

	if config.EventBusType == "kafka" && config.IngestTopic != "" {
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "warden-ingest")
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka ingest channel: %w", err)
		}

		_ = pub.Close()

		e.sources = append(e.sources, ingest.NewTopicSource(logger, sub, config.IngestTopic))
	}

	if config.SchedulesFile != "" {
		source, err := loadSchedules(logger, config.SchedulesFile)
		if err != nil {
			return nil, err
		}

		e.sources = append(e.sources, source)
	}

	return e, nil
}

// Start runs the orchestrator and every configured ingest source, then
// blocks until SIGINT or SIGTERM.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := e.orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	emit := func(ctx context.Context, event events.TriggerEvent) error {
		return e.eventBus.Publish(ctx, event.ID, event)
	}

	for _, source := range e.sources {
		if err := source.Start(ctx, emit); err != nil {
			return fmt.Errorf("failed to start ingest source: %w", err)
		}
	}

	e.logger.InfoContext(ctx, "Engine started", "sources", len(e.sources))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	e.logger.Info("Shutting down engine...")

	for _, source := range e.sources {
		if err := source.Stop(); err != nil {
			e.logger.Warn("Failed to stop ingest source", "error", err)
		}
	}

	e.orchestrator.Drain()
	cancel()

	return nil
}

func loadSchedules(logger *slog.Logger, path string) (*ingest.ScheduleSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules file: %w", err)
	}

	var schedules []ingest.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules file: %w", err)
	}

	source := ingest.NewScheduleSource(logger)

	for _, schedule := range schedules {
		if err := source.Add(schedule); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", schedule.Name, err)
		}
	}

	return source, nil
}
