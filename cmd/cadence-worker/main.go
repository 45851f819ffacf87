package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/fieldsuite/cadence/pkg/cmd"
	"github.com/fieldsuite/cadence/pkg/log"
	"github.com/fieldsuite/cadence/pkg/models"
)

func main() {
	command := &cli.Command{
		Name:                  "cadence-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to advance automation runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
				Name:    "redis-url",
				Usage:   "Redis URL for the per-run advance lease (in-process lease if empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "mailer-endpoint",
				Usage:   "Email relay endpoint (log-only mailer if empty)",
				Sources: cli.EnvVars("MAILER_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "mailer-api-key",
				Usage:   "Bearer token for the email relay",
				Sources: cli.EnvVars("MAILER_API_KEY"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("cadence-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Cadence Worker")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "cadence-worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			mail := cmd.NewMailer(
				command.String("mailer-endpoint"),
				command.String("mailer-api-key"),
				command.String("company-reply-to"),
				logger,
			)

			company := &models.CompanySettings{
				Name:    command.String("company-name"),
				ReplyTo: command.String("company-reply-to"),
			}

			manager := NewWorkerManager(
				workerID,
				store,
				eventBus,
				cmd.NewRegistry(logger, store, mail),
				cmd.NewLease(command.String("redis-url")),
				company,
				logger,
			)

			err := manager.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
