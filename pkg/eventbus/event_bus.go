// Package eventbus provides the messaging layer between the trigger intake,
// the sweeper and the worker pool.
package eventbus

import (
	"context"

	"github.com/fieldsuite/cadence/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// AdvanceHandler consumes one step-advance job. Returning an error nacks
// the message for redelivery.
type AdvanceHandler func(ctx context.Context, job *events.RunAdvanceRequested) error

type EventHandler func(ctx context.Context, event any) error

// EventBus carries two streams: the advance work queue consumed by workers
// and the lifecycle stream for observers.
type EventBus interface {
	// Enqueue puts a step-advance job on the work queue.
	Enqueue(ctx context.Context, job events.RunAdvanceRequested) error

	// HandleAdvances registers the worker callback for advance jobs.
	HandleAdvances(handler AdvanceHandler)

	// SubscribeAdvances starts consuming the advance queue.
	SubscribeAdvances(ctx context.Context) error

	// Publish emits a lifecycle event, keyed by run id.
	Publish(ctx context.Context, key string, event Event) error

	// Handle registers a handler for one lifecycle event type.
	Handle(eventType events.EventType, handler EventHandler)

	// Subscribe starts consuming the lifecycle stream.
	Subscribe(ctx context.Context) error

	Close() error
	GenerateID() string
}
