// Package trigger turns business events into automation runs. For each
// event it matches enabled workflows by trigger type, applies their trigger
// filters against the resolved entity, creates a run per match and hands
// the first advance to the work queue.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsuite/cadence/pkg/conditions"
	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/events"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/runcontext"
)

type Intake struct {
	store    persistence.Persistence
	resolver *runcontext.Resolver
	bus      eventbus.EventBus
	logger   *slog.Logger
	now      func() time.Time
}

func NewIntake(
	store persistence.Persistence,
	resolver *runcontext.Resolver,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *Intake {
	return &Intake{
		store:    store,
		resolver: resolver,
		bus:      bus,
		logger:   logger.With("module", "trigger"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for tests.
func (i *Intake) WithClock(now func() time.Time) *Intake {
	i.now = now

	return i
}

// HandleEvent fans a business event out to every matching workflow and
// returns the runs it started. A filter mismatch is silent: no run record
// is created for workflows the event does not qualify for.
//
// The entity context is resolved once per event; every workflow's filter
// sees the same snapshot.
func (i *Intake) HandleEvent(ctx context.Context, event *models.BusinessEvent) ([]*models.AutomationRun, error) {
	logger := i.logger.With("trigger_type", event.Type, "entity_id", event.Entity.ID)

	workflows, err := i.store.Workflows().ListEnabledByTrigger(ctx, event.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows for trigger %s: %w", event.Type, err)
	}

	if len(workflows) == 0 {
		logger.Debug("No enabled workflows for trigger")

		return nil, nil
	}

	entityCtx, err := i.resolver.Resolve(ctx, event.Entity)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entity for trigger %s: %w", event.Type, err)
	}

	started := make([]*models.AutomationRun, 0, len(workflows))

	for _, workflow := range workflows {
		if !conditions.Evaluate(workflow.TriggerFilter, entityCtx) {
			logger.Debug("Trigger filter not satisfied", "workflow_id", workflow.ID)

			continue
		}

		run, err := i.startRun(ctx, workflow, event.Entity)
		if err != nil {
			return started, err
		}

		logger.Info("Started run", "workflow_id", workflow.ID, "run_id", run.ID)
		started = append(started, run)
	}

	return started, nil
}

func (i *Intake) startRun(ctx context.Context, workflow *models.WorkflowDefinition, entity models.EntityRef) (*models.AutomationRun, error) {
	now := i.now()

	run := &models.AutomationRun{
		ID:         "run-" + uuid.New().String()[:8],
		WorkflowID: workflow.ID,
		Entity:     entity,
		Status:     models.RunStatusRunning,
		Logs:       []models.RunLogEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := i.store.Runs().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run for workflow %s: %w", workflow.ID, err)
	}

	if err := i.enqueueAdvance(ctx, run, "trigger"); err != nil {
		// The run exists but its first advance was lost; the sweeper's
		// stalled-run scan picks it up.
		i.logger.Warn("Failed to enqueue first advance, sweeper will recover",
			"run_id", run.ID, "error", err)
	}

	i.publishTriggered(ctx, run, workflow.TriggerType)

	return run, nil
}

func (i *Intake) enqueueAdvance(ctx context.Context, run *models.AutomationRun, reason string) error {
	return i.bus.Enqueue(ctx, events.RunAdvanceRequested{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + i.bus.GenerateID(),
			Type:       events.RunAdvanceRequestedEvent,
			Timestamp:  i.now(),
			RunID:      run.ID,
			WorkflowID: run.WorkflowID,
		},
		Reason: reason,
	})
}

func (i *Intake) publishTriggered(ctx context.Context, run *models.AutomationRun, trigger models.TriggerType) {
	err := i.bus.Publish(ctx, run.ID, events.RunTriggered{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + i.bus.GenerateID(),
			Type:       events.RunTriggeredEvent,
			Timestamp:  i.now(),
			RunID:      run.ID,
			WorkflowID: run.WorkflowID,
		},
		TriggerType: trigger,
		Entity:      run.Entity,
	})
	if err != nil {
		i.logger.Warn("Failed to publish run triggered event", "run_id", run.ID, "error", err)
	}
}
