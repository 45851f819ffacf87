package sweeper_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/events"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence/file"
	"github.com/fieldsuite/cadence/pkg/sweeper"
)

type recordingBus struct {
	enqueued []events.RunAdvanceRequested
}

func (b *recordingBus) Enqueue(_ context.Context, job events.RunAdvanceRequested) error {
	b.enqueued = append(b.enqueued, job)

	return nil
}

func (b *recordingBus) Publish(context.Context, string, eventbus.Event) error { return nil }
func (b *recordingBus) GenerateID() string                                    { return "test" }
func (b *recordingBus) HandleAdvances(eventbus.AdvanceHandler)                {}
func (b *recordingBus) SubscribeAdvances(context.Context) error               { return nil }
func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler)        {}
func (b *recordingBus) Subscribe(context.Context) error                       { return nil }
func (b *recordingBus) Close() error                                          { return nil }

func (b *recordingBus) reasons() map[string]string {
	m := make(map[string]string, len(b.enqueued))
	for _, job := range b.enqueued {
		m[job.RunID] = job.Reason
	}

	return m
}

func TestRunOnce(t *testing.T) {
	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	seed := func(run *models.AutomationRun) {
		t.Helper()
		require.NoError(t, store.Runs().Create(ctx, run))
	}

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	// Due: WAITING with a past wake time.
	seed(&models.AutomationRun{ID: "run-due", WorkflowID: "wf", Status: models.RunStatusWaiting, NextRunAt: &past, UpdatedAt: past})

	// Not due yet.
	seed(&models.AutomationRun{ID: "run-later", WorkflowID: "wf", Status: models.RunStatusWaiting, NextRunAt: &future, UpdatedAt: now})

	// Stalled: RUNNING but untouched for longer than the threshold.
	seed(&models.AutomationRun{ID: "run-stalled", WorkflowID: "wf", Status: models.RunStatusRunning, UpdatedAt: now.Add(-time.Hour)})

	// Healthy in-flight run.
	seed(&models.AutomationRun{ID: "run-active", WorkflowID: "wf", Status: models.RunStatusRunning, UpdatedAt: now.Add(-time.Minute)})

	// Terminal runs are never swept.
	done := now.Add(-2 * time.Hour)
	seed(&models.AutomationRun{ID: "run-done", WorkflowID: "wf", Status: models.RunStatusCompleted, NextRunAt: &past, UpdatedAt: done})

	bus := &recordingBus{}
	s := sweeper.NewSweeper(store, bus, slog.New(slog.DiscardHandler)).
		WithStallAfter(10 * time.Minute).
		WithClock(func() time.Time { return now })

	require.NoError(t, s.RunOnce(ctx))

	reasons := bus.reasons()
	assert.Len(t, reasons, 2)
	assert.Equal(t, "resume", reasons["run-due"])
	assert.Equal(t, "sweep", reasons["run-stalled"])
}

func TestRunOnceIdempotentAcrossPasses(t *testing.T) {
	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	require.NoError(t, store.Runs().Create(ctx, &models.AutomationRun{
		ID: "run-due", WorkflowID: "wf", Status: models.RunStatusWaiting, NextRunAt: &past, UpdatedAt: past,
	}))

	bus := &recordingBus{}
	s := sweeper.NewSweeper(store, bus, slog.New(slog.DiscardHandler)).
		WithClock(func() time.Time { return now })

	// A run that stays due gets re-enqueued every pass; the driver's own
	// guards make the duplicates harmless.
	require.NoError(t, s.RunOnce(ctx))
	require.NoError(t, s.RunOnce(ctx))
	assert.Len(t, bus.enqueued, 2)
}
