// Package main provides the flowbridge API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/flowbridge/pkg/cmd"
	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/eventbus"
	"github.com/dukex/flowbridge/pkg/log"
	"github.com/dukex/flowbridge/pkg/mappings"
	"github.com/dukex/flowbridge/pkg/otelhelper"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/dukex/flowbridge/pkg/services"
	"github.com/dukex/flowbridge/pkg/web"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9092

const shutdownTimeout = 10 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "flowbridge-api",
		Usage:                 "Convert Make.com blueprints into n8n workflows over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "mappings",
				Usage:   "Mapping table file (.json, .yaml or .yml); the built-in table is used when empty or invalid",
				Sources: cli.EnvVars("MAPPINGS_PATH"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Conversion archive URL (file://, postgres://, redis://); empty disables the archive",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka, none)",
				Value:   cmd.EventBusGoChannel,
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "retention",
				Usage:   "How long archived conversions are kept",
				Value:   services.DefaultRetention,
				Sources: cli.EnvVars("ARCHIVE_RETENTION"),
			},
			&cli.StringFlag{
				Name:    "retention-schedule",
				Usage:   "Cron schedule of the archive purge",
				Value:   services.DefaultRetentionSchedule,
				Sources: cli.EnvVars("ARCHIVE_RETENTION_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "max-upload-size",
				Usage:   "Maximum blueprint size in bytes",
				Value:   web.DefaultMaxUploadSize,
				Sources: cli.EnvVars("MAX_UPLOAD_SIZE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing flowbridge API")

	tracer, shutdownTracer, err := otelhelper.Tracer(ctx, cmd.ServiceName, command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := shutdownTracer(flushCtx); err != nil {
			logger.ErrorContext(flushCtx, "Failed to flush traces", "error", err)
		}
	}()

	table := mappings.LoadOrDefault(command.String("mappings"), log.WithModule("mappings"))

	archive, err := cmd.NewPersistence(ctx, log.WithModule("persistence"), command.String("database-url"), command.Duration("retention"))
	if err != nil {
		return err
	}

	if archive != nil {
		defer closeArchive(logger, archive)
	}

	var publisher eventbus.EventPublisher

	bus, err := cmd.NewEventBus(command.String("event-bus"), log.WithModule("eventbus"))
	if err != nil {
		return err
	}

	if bus != nil {
		defer func() {
			if err := bus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()

		if err := services.NewAudit(log.WithModule("audit")).Register(bus); err != nil {
			return fmt.Errorf("failed to register audit handlers: %w", err)
		}

		if err := bus.Subscribe(ctx); err != nil {
			return fmt.Errorf("failed to subscribe to events: %w", err)
		}

		publisher = bus
	}

	conv := converter.New(table,
		converter.WithTracer(tracer),
		converter.WithLogger(log.WithModule("converter")),
	)
	conversionService := services.NewConversion(log.WithModule("conversion"), tracer, conv, archive, publisher)

	if archive != nil {
		retention, err := services.NewRetention(
			log.WithModule("retention"),
			archive,
			publisher,
			command.Duration("retention"),
			command.String("retention-schedule"),
		)
		if err != nil {
			return err
		}

		if err := retention.Start(ctx); err != nil {
			return err
		}

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err := retention.Stop(stopCtx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop retention", "error", err)
			}
		}()
	}

	api := NewAPI(logger, conversionService, table, int64(command.Int("max-upload-size")))

	logger.InfoContext(ctx, "Starting flowbridge API",
		"port", command.Int("port"),
		"mappings", len(table),
		"archive", archive != nil,
		"event_bus", command.String("event-bus"))

	return api.Start(ctx, command.Int("port"))
}

func closeArchive(logger *slog.Logger, archive persistence.Persistence) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := archive.Close(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to close archive", "error", err)
	}
}
