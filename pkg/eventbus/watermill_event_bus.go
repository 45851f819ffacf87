package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/fieldsuite/cadence/pkg/events"
)

type WatermillEventBus struct {
	publisher      message.Publisher
	subscriber     message.Subscriber
	advanceHandler AdvanceHandler
	subscriptions  map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Enqueue(ctx context.Context, job events.RunAdvanceRequested) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, job.RunID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(job.GetType()))

	return eb.publisher.Publish(events.AdvanceTopic, msg)
}

func (eb *WatermillEventBus) HandleAdvances(handler AdvanceHandler) {
	eb.advanceHandler = handler
}

func (eb *WatermillEventBus) SubscribeAdvances(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.AdvanceTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			if eb.advanceHandler == nil {
				msg.Ack()

				continue
			}

			job := &events.RunAdvanceRequested{}

			err := json.Unmarshal(msg.Payload, job)
			if err != nil {
				msg.Nack()

				continue
			}

			err = eb.advanceHandler(ctx, job)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.LifecycleTopic, msg)
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) {
	eb.subscriptions[eventType] = handler
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.LifecycleTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var event any

			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			handler, exists := eb.subscriptions[eventType]
			if !exists {
				msg.Ack()

				continue
			}

			switch eventType {
			case events.RunTriggeredEvent:
				event = &events.RunTriggered{}
			case events.RunCompletedEvent:
				event = &events.RunCompleted{}
			case events.RunFailedEvent:
				event = &events.RunFailed{}
			case events.RunSuspendedEvent:
				event = &events.RunSuspended{}
			case events.RunCancelledEvent:
				event = &events.RunCancelled{}
			default:
				msg.Nack()

				continue
			}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				msg.Nack()

				continue
			}

			err = handler(ctx, event)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
