package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldsuite/cadence/pkg/cmd"
	"github.com/fieldsuite/cadence/pkg/log"
	"github.com/fieldsuite/cadence/pkg/models"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "cadence-api",
		Usage:                 "Ingest business events and manage workflows and runs",
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
			&cli.StringFlag{
				Name:    "company-name",
				Usage:   "Business name exposed to templates",
				Value:   "Cadence",
				Sources: cli.EnvVars("COMPANY_NAME"),
			},
			&cli.StringFlag{
				Name:    "company-reply-to",
				Usage:   "Reply-to address for outbound email",
				Sources: cli.EnvVars("COMPANY_REPLY_TO"),
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

			logger.InfoContext(ctx, "Initializing Cadence API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "cadence-api", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			company := &models.CompanySettings{
				Name:    command.String("company-name"),
				ReplyTo: command.String("company-reply-to"),
			}

			api := NewAPI(logger, store, eventBus, company)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
