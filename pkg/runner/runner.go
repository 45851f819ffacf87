// Package runner drives automation runs: it advances a run through its
// workflow's steps, persisting every transition, until the run suspends at
// a delay, fails, or completes.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldsuite/cadence/pkg/conditions"
	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/events"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/protocol"
	"github.com/fieldsuite/cadence/pkg/registry"
	"github.com/fieldsuite/cadence/pkg/runcontext"
)

type Runner struct {
	store    persistence.Persistence
	resolver *runcontext.Resolver
	registry *registry.Registry
	bus      eventbus.EventBus
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewRunner(
	store persistence.Persistence,
	resolver *runcontext.Resolver,
	reg *registry.Registry,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		store:    store,
		resolver: resolver,
		registry: reg,
		bus:      bus,
		logger:   logger.With("module", "runner"),
		tracer:   otel.Tracer("cadence/runner"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Tests use it to pin "now".
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now

	return r
}

// Advance moves a run forward through its workflow. One call executes steps
// until the run suspends, fails, or completes; every step's transition is
// committed before the next step is attempted, so a crash mid-pass loses at
// most the in-flight step.
//
// Terminal runs are a no-op, as is a WAITING run woken before its time —
// the scheduling contract says not to wake early, but a racing duplicate
// invocation must not re-execute anything.
//
// Executor failures are recorded on the run (status FAILED plus a log
// entry) and do not propagate; only infrastructure errors (store reads,
// lost CAS races) surface to the caller so the work queue redelivers.
func (r *Runner) Advance(ctx context.Context, runID string) error {
	ctx, span := r.tracer.Start(ctx, "run.advance",
		trace.WithAttributes(attribute.String("cadence.run.id", runID)))
	defer span.End()

	logger := r.logger.With("run_id", runID)

	run, err := r.store.Runs().GetByID(ctx, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return persistence.NewRunError("Advance", runID, err)
	}

	if run.Status.Terminal() {
		logger.Debug("Run already terminal, nothing to advance", "status", run.Status)

		return nil
	}

	if run.Status == models.RunStatusWaiting {
		if run.NextRunAt != nil && r.now().Before(*run.NextRunAt) {
			logger.Debug("Run woken before its wake time, ignoring", "next_run_at", run.NextRunAt)

			return nil
		}

		run.Status = models.RunStatusRunning
		run.NextRunAt = nil

		err = r.persist(ctx, run)
		if err != nil {
			return err
		}

		logger.Info("Resumed run", "step_index", run.CurrentStepIndex)
	}

	for {
		done, err := r.advanceStep(ctx, run, logger)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return err
		}

		if done {
			return nil
		}

		// Reload between steps so a concurrent cancel (or any other
		// writer) is honored before more work happens.
		run, err = r.store.Runs().GetByID(ctx, runID)
		if err != nil {
			return persistence.NewRunError("Advance", runID, err)
		}

		if run.Status != models.RunStatusRunning {
			logger.Info("Run no longer running, stopping pass", "status", run.Status)

			return nil
		}
	}
}

// advanceStep performs exactly one step attempt. It returns done=true when
// the pass should stop: the run completed, suspended, or failed.
func (r *Runner) advanceStep(ctx context.Context, run *models.AutomationRun, logger *slog.Logger) (bool, error) {
	// The definition is re-read every step; edits to a workflow take
	// effect on in-flight runs at their next step.
	workflow, err := r.store.Workflows().GetByID(ctx, run.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return true, r.failRun(ctx, run, run.CurrentStepIndex, "", fmt.Sprintf("workflow %s not found", run.WorkflowID), logger)
		}

		return false, persistence.NewRunError("Advance", run.ID, err)
	}

	if run.CurrentStepIndex >= len(workflow.Steps) {
		return true, r.completeRun(ctx, run, logger)
	}

	entityCtx, err := r.resolver.Resolve(ctx, run.Entity)
	if err != nil {
		// Context resolution hits the record store; treat errors as
		// transient and let the queue redeliver rather than failing the run.
		return false, persistence.NewRunError("Advance", run.ID, err)
	}

	step := workflow.Steps[run.CurrentStepIndex]
	stepIndex := run.CurrentStepIndex
	now := r.now()

	stepLogger := logger.With("step_index", stepIndex, "step_kind", step.Kind)

	if !conditions.Evaluate(step.Conditions, entityCtx) {
		stepLogger.Info("Step conditions not met, skipping")

		run.AppendLog(stepIndex, step.Kind, models.OutcomeSkipped, "", now)
		run.CurrentStepIndex++

		return false, r.persist(ctx, run)
	}

	executor, err := r.registry.Create(step.Kind, step.Config)
	if err != nil {
		return true, r.failRun(ctx, run, stepIndex, step.Kind, err.Error(), logger)
	}

	env := protocol.StepEnv{RunID: run.ID, StepIndex: stepIndex, Now: now}

	result, err := executor.Execute(ctx, env, entityCtx, stepLogger)
	if err != nil {
		stepLogger.Error("Step execution failed", "error", err)

		return true, r.failRun(ctx, run, stepIndex, step.Kind, err.Error(), logger)
	}

	run.AppendLog(stepIndex, step.Kind, models.OutcomeSuccess, "", now)
	run.CurrentStepIndex++

	if result.Action == protocol.ActionSuspend {
		run.Status = models.RunStatusWaiting
		run.NextRunAt = &result.WakeAt

		err = r.persist(ctx, run)
		if err != nil {
			return true, err
		}

		stepLogger.Info("Run suspended", "next_run_at", result.WakeAt)
		r.publish(ctx, run, events.RunSuspended{
			BaseEvent: r.baseEvent(events.RunSuspendedEvent, run),
			NextRunAt: result.WakeAt,
		})

		return true, nil
	}

	return false, r.persist(ctx, run)
}

// Cancel transitions a run to CANCELLED. Terminal runs are left untouched.
// The driver checks status between steps, so a cancel lands at the next
// step boundary of any in-flight pass.
func (r *Runner) Cancel(ctx context.Context, runID string) error {
	run, err := r.store.Runs().GetByID(ctx, runID)
	if err != nil {
		return persistence.NewRunError("Cancel", runID, err)
	}

	if run.Status.Terminal() {
		return nil
	}

	now := r.now()
	run.Status = models.RunStatusCancelled
	run.NextRunAt = nil
	run.CompletedAt = &now

	err = r.persist(ctx, run)
	if err != nil {
		return err
	}

	r.logger.Info("Cancelled run", "run_id", runID)
	r.publish(ctx, run, events.RunCancelled{BaseEvent: r.baseEvent(events.RunCancelledEvent, run)})

	return nil
}

func (r *Runner) completeRun(ctx context.Context, run *models.AutomationRun, logger *slog.Logger) error {
	now := r.now()
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &now
	run.NextRunAt = nil

	err := r.persist(ctx, run)
	if err != nil {
		return err
	}

	logger.Info("Run completed", "steps_executed", len(run.Logs))
	r.publish(ctx, run, events.RunCompleted{
		BaseEvent:     r.baseEvent(events.RunCompletedEvent, run),
		StepsExecuted: len(run.Logs),
	})

	return nil
}

// failRun records a terminal failure. There is no automatic retry: the
// audit trail is the diagnostic surface and several executors are not safe
// to replay blindly.
func (r *Runner) failRun(ctx context.Context, run *models.AutomationRun, stepIndex int, kind models.StepKind, errMsg string, logger *slog.Logger) error {
	now := r.now()
	run.AppendLog(stepIndex, kind, models.OutcomeFailed, errMsg, now)
	run.Status = models.RunStatusFailed
	run.CompletedAt = &now
	run.NextRunAt = nil

	err := r.persist(ctx, run)
	if err != nil {
		return err
	}

	logger.Error("Run failed", "step_index", stepIndex, "error", errMsg)
	r.publish(ctx, run, events.RunFailed{
		BaseEvent: r.baseEvent(events.RunFailedEvent, run),
		StepIndex: stepIndex,
		Error:     errMsg,
	})

	return nil
}

func (r *Runner) persist(ctx context.Context, run *models.AutomationRun) error {
	run.UpdatedAt = r.now()

	err := r.store.Runs().Update(ctx, run)
	if err != nil {
		return persistence.NewRunError("persist", run.ID, err)
	}

	return nil
}

// publish is best-effort: lifecycle events are observability, not state.
func (r *Runner) publish(ctx context.Context, run *models.AutomationRun, event eventbus.Event) {
	if r.bus == nil {
		return
	}

	err := r.bus.Publish(ctx, run.ID, event)
	if err != nil {
		r.logger.Warn("Failed to publish lifecycle event",
			"run_id", run.ID, "event_type", event.GetType(), "error", err)
	}
}

func (r *Runner) baseEvent(eventType events.EventType, run *models.AutomationRun) events.BaseEvent {
	id := "evt-unknown"
	if r.bus != nil {
		id = "evt-" + r.bus.GenerateID()
	}

	return events.BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  r.now(),
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
	}
}
