// Package events defines the messages exchanged over the bus: advance jobs
// consumed by the worker pool and lifecycle notifications for observers.
package events

import (
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
)

type EventType string

// Topics.
const (
	AdvanceTopic   = "cadence.run.advances"  // work queue: step-advance jobs
	LifecycleTopic = "cadence.run.lifecycle" // fan-out: run state changes
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunAdvanceRequestedEvent EventType = "run.advance.requested"
	RunTriggeredEvent        EventType = "run.triggered"
	RunCompletedEvent        EventType = "run.completed"
	RunFailedEvent           EventType = "run.failed"
	RunSuspendedEvent        EventType = "run.suspended"
	RunCancelledEvent        EventType = "run.cancelled"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
}

// RunAdvanceRequested is the step-advance job. Delivery is at-least-once;
// the run's version guard and the email dedup key make redelivery safe.
type RunAdvanceRequested struct {
	BaseEvent

	// Reason records who enqueued the job: trigger, sweep, resume, api.
	Reason string `json:"reason,omitempty"`
}

func (e RunAdvanceRequested) GetType() EventType {
	return RunAdvanceRequestedEvent
}

type RunTriggered struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	Entity      models.EntityRef   `json:"entity"`
}

func (e RunTriggered) GetType() EventType {
	return RunTriggeredEvent
}

type RunCompleted struct {
	BaseEvent

	StepsExecuted int `json:"steps_executed"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	StepIndex int    `json:"step_index"`
	Error     string `json:"error"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunSuspended struct {
	BaseEvent

	NextRunAt time.Time `json:"next_run_at"`
}

func (e RunSuspended) GetType() EventType {
	return RunSuspendedEvent
}

type RunCancelled struct {
	BaseEvent
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}
