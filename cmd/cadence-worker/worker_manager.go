package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/events"
	"github.com/fieldsuite/cadence/pkg/lease"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/registry"
	"github.com/fieldsuite/cadence/pkg/runcontext"
	"github.com/fieldsuite/cadence/pkg/runner"
)

// advanceLeaseTTL bounds how long a crashed worker can block a run. It must
// comfortably exceed one advance pass.
const advanceLeaseTTL = 2 * time.Minute

type WorkerManager struct {
	id       string
	logger   *slog.Logger
	store    persistence.Persistence
	eventBus eventbus.EventBus
	lease    lease.Lease
	runner   *runner.Runner
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
	advanceLease lease.Lease,
	company *models.CompanySettings,
	logger *slog.Logger,
) *WorkerManager {
	resolver := runcontext.NewResolver(store, company, logger)

	return &WorkerManager{
		id:       id,
		logger:   logger.With("module", "worker-manager"),
		store:    store,
		eventBus: eventBus,
		lease:    advanceLease,
		runner:   runner.NewRunner(store, resolver, reg, eventBus, logger),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	w.eventBus.HandleAdvances(w.handleAdvance)

	err := w.eventBus.SubscribeAdvances(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to advance queue", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker...")
	case <-ctx.Done():
	}

	return nil
}

// handleAdvance drives one advance job. Returning an error nacks the
// message for redelivery, so only transient infrastructure failures
// propagate; everything the driver settles terminally is acked.
func (w *WorkerManager) handleAdvance(ctx context.Context, job *events.RunAdvanceRequested) error {
	logger := w.logger.With("run_id", job.RunID, "reason", job.Reason)

	token, acquired, err := w.lease.Acquire(ctx, job.RunID, advanceLeaseTTL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to acquire advance lease", "error", err)

		return err
	}

	if !acquired {
		// Another worker is already driving this run. Dropping the job is
		// safe: the driver is idempotent and the sweeper re-enqueues
		// anything that stalls.
		logger.DebugContext(ctx, "Run is leased elsewhere, dropping job")

		return nil
	}

	defer func() {
		err := w.lease.Release(ctx, job.RunID, token)
		if err != nil {
			logger.WarnContext(ctx, "Failed to release advance lease", "error", err)
		}
	}()

	err = w.runner.Advance(ctx, job.RunID)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			logger.WarnContext(ctx, "Advance job references unknown run, dropping")

			return nil
		}

		if persistence.IsVersionConflict(err) {
			// A concurrent writer moved the run; the redelivered job will
			// observe the new state.
			logger.InfoContext(ctx, "Lost version race, job will be redelivered")
		} else {
			logger.ErrorContext(ctx, "Failed to advance run", "error", err)
		}

		return err
	}

	return nil
}
