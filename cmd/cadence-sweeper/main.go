package main

import (
	"context"
	"errors"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldsuite/cadence/pkg/cmd"
	"github.com/fieldsuite/cadence/pkg/log"
	"github.com/fieldsuite/cadence/pkg/sweeper"
)

func main() {
	command := &cli.Command{
		Name:                  "cadence-sweeper",
		EnableShellCompletion: true,
		Usage:                 "Wake suspended automation runs and recover stalled ones",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "How often to scan for due and stalled runs",
				Value:   sweeper.DefaultInterval,
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "stall-after",
				Usage:   "How long a RUNNING run may go untouched before recovery",
				Value:   sweeper.DefaultStallAfter,
				Sources: cli.EnvVars("STALL_AFTER"),
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

			logger := log.WithModule("cadence-sweeper")

			logger.InfoContext(ctx, "Initializing Cadence Sweeper")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "cadence-sweeper", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			s := sweeper.NewSweeper(store, eventBus, logger).
				WithInterval(command.Duration("interval")).
				WithStallAfter(command.Duration("stall-after"))

			err := s.Start(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "Sweeper stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
