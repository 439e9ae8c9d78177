package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/pkg/cmd"
	"github.com/wardenhq/warden/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "warden-engine",
		Usage:                 "Run the workflow execution engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Sources: cli.EnvVars("ENGINE_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the workflow KV store and the event queue",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "ingest-queue",
				Usage:   "Redis list to consume raw game events from (requires redis-url)",
				Sources: cli.EnvVars("INGEST_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "ingest-topic",
				Usage:   "Kafka topic to consume raw game events from (requires event-bus=kafka)",
				Sources: cli.EnvVars("INGEST_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "schedules-file",
				Usage:   "JSON file with cron schedules emitting SCHEDULED_TIME events",
				Sources: cli.EnvVars("SCHEDULES_FILE"),
			},
			&cli.StringFlag{
				Name:    "agent-url",
				Usage:   "Base URL of the game-server agent (console and ban backend)",
				Sources: cli.EnvVars("AGENT_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			engineID := command.String("engine-id")
			if engineID == "" {
				engineID = "engine-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("warden-engine").With("engine_id", engineID)

			logger.InfoContext(ctx, "Initializing Warden Engine")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			store := cmd.NewKVStore(ctx, command.String("redis-url"))
			defer func() {
				if err := store.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close kv store", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "warden-engine", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			gameConsole := cmd.NewConsole(logger, command.String("agent-url"))
			banBackend := cmd.NewModeration(logger, command.String("agent-url"))
			registry := cmd.NewRegistry(logger, gameConsole, banBackend, cmd.NewMessageSink(persistence), store)

			engine, err := NewEngine(engineID, logger, persistence, eventBus, registry, EngineConfig{
				RedisURL:      command.String("redis-url"),
				IngestQueue:   command.String("ingest-queue"),
				IngestTopic:   command.String("ingest-topic"),
				EventBusType:  command.String("event-bus"),
				SchedulesFile: command.String("schedules-file"),
			})
			if err != nil {
				return err
			}

			if err := engine.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start engine", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
