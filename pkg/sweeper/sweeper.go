// Package sweeper is the scheduling authority for suspended runs. It polls
// the run store for WAITING runs whose wake time has passed and re-enqueues
// them, and recovers RUNNING runs whose advance job was lost.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/events"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
)

const (
	DefaultInterval   = 30 * time.Second
	DefaultBatchSize  = 100
	DefaultStallAfter = 10 * time.Minute
)

type Sweeper struct {
	store      persistence.Persistence
	bus        eventbus.EventBus
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
	stallAfter time.Duration
	now        func() time.Time
}

func NewSweeper(store persistence.Persistence, bus eventbus.EventBus, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:      store,
		bus:        bus,
		logger:     logger.With("module", "sweeper"),
		interval:   DefaultInterval,
		batchSize:  DefaultBatchSize,
		stallAfter: DefaultStallAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) WithInterval(d time.Duration) *Sweeper {
	s.interval = d

	return s
}

func (s *Sweeper) WithStallAfter(d time.Duration) *Sweeper {
	s.stallAfter = d

	return s
}

// WithClock overrides the time source for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now

	return s
}

// Start polls until the context is cancelled. An immediate first sweep runs
// before the ticker so restarts pick up overdue runs without waiting a full
// interval.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("Starting sweeper", "interval", s.interval, "stall_after", s.stallAfter)

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")

			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep pass. Enqueueing is at-least-once: a run
// swept twice is harmless because the driver ignores premature and
// duplicate wakes.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.now()

	due, err := s.store.Runs().ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list due runs: %w", err)
	}

	for _, run := range due {
		s.enqueue(ctx, run, "resume")
	}

	stalled, err := s.store.Runs().ListStalled(ctx, now.Add(-s.stallAfter), s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stalled runs: %w", err)
	}

	for _, run := range stalled {
		s.logger.Warn("Recovering stalled run", "run_id", run.ID, "updated_at", run.UpdatedAt)
		s.enqueue(ctx, run, "sweep")
	}

	if len(due) > 0 || len(stalled) > 0 {
		s.logger.Info("Sweep enqueued runs", "due", len(due), "stalled", len(stalled))
	}

	return nil
}

func (s *Sweeper) enqueue(ctx context.Context, run *models.AutomationRun, reason string) {
	err := s.bus.Enqueue(ctx, events.RunAdvanceRequested{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + s.bus.GenerateID(),
			Type:       events.RunAdvanceRequestedEvent,
			Timestamp:  s.now(),
			RunID:      run.ID,
			WorkflowID: run.WorkflowID,
		},
		Reason: reason,
	})
	if err != nil {
		// Leave it for the next pass.
		s.logger.Error("Failed to enqueue advance", "run_id", run.ID, "error", err)
	}
}
