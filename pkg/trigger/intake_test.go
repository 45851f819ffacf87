package trigger_test

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
	"github.com/fieldsuite/cadence/pkg/runcontext"
	"github.com/fieldsuite/cadence/pkg/trigger"
)

type recordingBus struct {
	enqueued  []events.RunAdvanceRequested
	published []eventbus.Event
	ids       int
}

func (b *recordingBus) Enqueue(_ context.Context, job events.RunAdvanceRequested) error {
	b.enqueued = append(b.enqueued, job)

	return nil
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.published = append(b.published, event)

	return nil
}

func (b *recordingBus) GenerateID() string {
	b.ids++

	return "test"
}

func (b *recordingBus) HandleAdvances(eventbus.AdvanceHandler)         {}
func (b *recordingBus) SubscribeAdvances(context.Context) error        { return nil }
func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) {}
func (b *recordingBus) Subscribe(context.Context) error                { return nil }
func (b *recordingBus) Close() error                                   { return nil }

func newIntake(t *testing.T) (*trigger.Intake, *file.Persistence, *recordingBus) {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	resolver := runcontext.NewResolver(store, &models.CompanySettings{Name: "Brightside"}, logger)
	bus := &recordingBus{}

	intake := trigger.NewIntake(store, resolver, bus, logger).WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	})

	return intake, store, bus
}

func seedWorkflow(t *testing.T, store *file.Persistence, workflow *models.WorkflowDefinition) {
	t.Helper()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))
}

func TestHandleEventStartsMatchingRuns(t *testing.T) {
	intake, store, bus := newIntake(t)
	ctx := context.Background()

	require.NoError(t, store.Clients().Save(ctx, &models.Client{ID: "cl-1", Email: "ana@example.com", Status: "active"}))

	seedWorkflow(t, store, &models.WorkflowDefinition{
		ID: "wf-1", Name: "Welcome", TriggerType: models.TriggerClientCreated, Enabled: true,
	})
	seedWorkflow(t, store, &models.WorkflowDefinition{
		ID: "wf-2", Name: "Other trigger", TriggerType: models.TriggerJobCompleted, Enabled: true,
	})
	seedWorkflow(t, store, &models.WorkflowDefinition{
		ID: "wf-3", Name: "Disabled", TriggerType: models.TriggerClientCreated, Enabled: false,
	})

	runs, err := intake.HandleEvent(ctx, &models.BusinessEvent{
		Type:   models.TriggerClientCreated,
		Entity: models.EntityRef{Type: models.EntityClient, ID: "cl-1"},
	})
	require.NoError(t, err)

	require.Len(t, runs, 1)
	assert.Equal(t, "wf-1", runs[0].WorkflowID)
	assert.Equal(t, models.RunStatusRunning, runs[0].Status)
	assert.Equal(t, 0, runs[0].CurrentStepIndex)

	// The run is durable before any advance happens.
	stored, err := store.Runs().GetByID(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, stored.Status)

	require.Len(t, bus.enqueued, 1)
	assert.Equal(t, runs[0].ID, bus.enqueued[0].RunID)
	assert.Equal(t, "trigger", bus.enqueued[0].Reason)

	require.Len(t, bus.published, 1)
	assert.Equal(t, events.RunTriggeredEvent, bus.published[0].GetType())
}

func TestHandleEventAppliesTriggerFilter(t *testing.T) {
	intake, store, bus := newIntake(t)
	ctx := context.Background()

	require.NoError(t, store.Clients().Save(ctx, &models.Client{ID: "cl-1", Status: "active"}))

	seedWorkflow(t, store, &models.WorkflowDefinition{
		ID: "wf-vip", Name: "VIP only", TriggerType: models.TriggerClientCreated, Enabled: true,
		TriggerFilter: models.GroupOf(models.LogicAnd,
			models.LeafNode("client", "status", models.OpEquals, "vip")),
	})
	seedWorkflow(t, store, &models.WorkflowDefinition{
		ID: "wf-all", Name: "Everyone", TriggerType: models.TriggerClientCreated, Enabled: true,
	})

	runs, err := intake.HandleEvent(ctx, &models.BusinessEvent{
		Type:   models.TriggerClientCreated,
		Entity: models.EntityRef{Type: models.EntityClient, ID: "cl-1"},
	})
	require.NoError(t, err)

	// Only the unfiltered workflow matched; the filtered one left no trace.
	require.Len(t, runs, 1)
	assert.Equal(t, "wf-all", runs[0].WorkflowID)
	assert.Len(t, bus.enqueued, 1)
}

func TestHandleEventNoMatchesIsQuiet(t *testing.T) {
	intake, _, bus := newIntake(t)

	runs, err := intake.HandleEvent(context.Background(), &models.BusinessEvent{
		Type:   models.TriggerInvoicePaid,
		Entity: models.EntityRef{Type: models.EntityClient, ID: "cl-1"},
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, bus.enqueued)
	assert.Empty(t, bus.published)
}

func TestHandleEventUnresolvedEntityFailsFilteredWorkflowsClosed(t *testing.T) {
	intake, store, _ := newIntake(t)
	ctx := context.Background()

	// No client record exists for the entity id.
	seedWorkflow(t, store, &models.WorkflowDefinition{
		ID: "wf-filtered", Name: "Gated", TriggerType: models.TriggerClientCreated, Enabled: true,
		TriggerFilter: models.GroupOf(models.LogicAnd,
			models.LeafNode("client", "status", models.OpIsEmpty, nil)),
	})

	runs, err := intake.HandleEvent(ctx, &models.BusinessEvent{
		Type:   models.TriggerClientCreated,
		Entity: models.EntityRef{Type: models.EntityClient, ID: "cl-ghost"},
	})
	require.NoError(t, err)
	assert.Empty(t, runs, "conditions on an unresolved entity fail closed")
}
