// Package cmd provides common initialization functions for the command-line
// binaries: persistence selection, event bus construction, step registry
// setup, mailer and lease wiring.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/fieldsuite/cadence/pkg/channels/gochannel"
	"github.com/fieldsuite/cadence/pkg/channels/kafka"
	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/lease"
	"github.com/fieldsuite/cadence/pkg/mailer"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/persistence/file"
	"github.com/fieldsuite/cadence/pkg/persistence/postgresql"
	"github.com/fieldsuite/cadence/pkg/protocol"
	"github.com/fieldsuite/cadence/pkg/registry"
	"github.com/fieldsuite/cadence/pkg/steps/createtask"
	"github.com/fieldsuite/cadence/pkg/steps/delay"
	"github.com/fieldsuite/cadence/pkg/steps/sendemail"
	"github.com/fieldsuite/cadence/pkg/steps/sendsms"
	"github.com/fieldsuite/cadence/pkg/steps/tag"
	"github.com/fieldsuite/cadence/pkg/steps/updatestatus"
	"github.com/fieldsuite/cadence/pkg/steps/waituntil"
)

// NewPersistence selects a backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, _, found := strings.Cut(databaseURL, "://")

	if found && (scheme == "postgres" || scheme == "postgresql") {
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return store
	}

	root := strings.TrimPrefix(databaseURL, "file://")

	store, err := file.NewPersistence(root)
	if err != nil {
		panic(fmt.Errorf("failed to initialize file persistence: %w", err))
	}

	return store
}

// NewEventBus creates the work-queue/lifecycle bus: kafka in production,
// gochannel for single-process development.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

// NewRegistry registers every native step kind.
func NewRegistry(logger *slog.Logger, store persistence.Persistence, mail protocol.Mailer) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(sendemail.NewFactory(mail, store.EmailLog()))
	reg.Register(sendsms.NewFactory())
	reg.Register(delay.NewFactory())
	reg.Register(waituntil.NewFactory())
	reg.Register(tag.NewAddFactory(store.Clients()))
	reg.Register(tag.NewRemoveFactory(store.Clients()))
	reg.Register(createtask.NewFactory(store.Tasks()))
	reg.Register(updatestatus.NewFactory(store.Jobs()))

	return reg
}

// NewMailer returns the HTTP relay when an endpoint is configured, the
// log-only mailer otherwise.
func NewMailer(endpoint, apiKey, replyTo string, logger *slog.Logger) protocol.Mailer {
	if endpoint == "" {
		return mailer.NewLogMailer(logger)
	}

	return mailer.NewHTTPMailer(endpoint, apiKey, replyTo, logger)
}

// NewLease returns the redis-backed lease when a redis URL is configured,
// the in-process lease otherwise.
func NewLease(redisURL string) lease.Lease {
	if redisURL == "" {
		return lease.NewMemoryLease()
	}

	l, err := lease.NewRedisLease(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to initialize redis lease: %w", err))
	}

	return l
}
