package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/persistence/file"
)

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	return store
}

func TestRunCreateRejectsDuplicateID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	run := &models.AutomationRun{ID: "run-1", WorkflowID: "wf-1", Status: models.RunStatusRunning}
	require.NoError(t, store.Runs().Create(ctx, run))

	err := store.Runs().Create(ctx, &models.AutomationRun{ID: "run-1"})
	assert.ErrorIs(t, err, persistence.ErrRunAlreadyExists)
}

func TestRunGetByIDNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.Runs().GetByID(context.Background(), "run-missing")
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestRunUpdateBumpsVersion(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	run := &models.AutomationRun{ID: "run-1", Status: models.RunStatusRunning}
	require.NoError(t, store.Runs().Create(ctx, run))

	run.CurrentStepIndex = 1
	require.NoError(t, store.Runs().Update(ctx, run))
	assert.Equal(t, 1, run.Version)

	stored, err := store.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, 1, stored.CurrentStepIndex)
}

func TestRunUpdateStaleVersionConflicts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Runs().Create(ctx, &models.AutomationRun{
		ID: "run-1", Status: models.RunStatusRunning,
	}))

	// Two readers load the same version; only the first write wins.
	first, err := store.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)
	second, err := store.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)

	first.CurrentStepIndex = 1
	require.NoError(t, store.Runs().Update(ctx, first))

	second.Status = models.RunStatusCancelled
	err = store.Runs().Update(ctx, second)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)

	stored, err := store.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, stored.Status)
	assert.Equal(t, 1, stored.CurrentStepIndex)
}

func TestRunUpdateMissingRun(t *testing.T) {
	store := newStore(t)

	err := store.Runs().Update(context.Background(), &models.AutomationRun{ID: "run-ghost"})
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestListDueReturnsOnlyWaitingRunsPastWakeTime(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seed := []*models.AutomationRun{
		{ID: "run-due", Status: models.RunStatusWaiting, NextRunAt: &past},
		{ID: "run-exact", Status: models.RunStatusWaiting, NextRunAt: &now},
		{ID: "run-early", Status: models.RunStatusWaiting, NextRunAt: &future},
		{ID: "run-active", Status: models.RunStatusRunning},
		{ID: "run-done", Status: models.RunStatusCompleted, NextRunAt: &past},
	}
	for _, run := range seed {
		require.NoError(t, store.Runs().Create(ctx, run))
	}

	due, err := store.Runs().ListDue(ctx, now, 100)
	require.NoError(t, err)

	ids := make([]string, 0, len(due))
	for _, run := range due {
		ids = append(ids, run.ID)
	}

	assert.ElementsMatch(t, []string{"run-due", "run-exact"}, ids)
}

func TestListDueHonorsLimit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.Runs().Create(ctx, &models.AutomationRun{
			ID: id, Status: models.RunStatusWaiting, NextRunAt: &past,
		}))
	}

	due, err := store.Runs().ListDue(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestListStalledReturnsQuietRunningRuns(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-10 * time.Minute)

	seed := []*models.AutomationRun{
		{ID: "run-stalled", Status: models.RunStatusRunning, UpdatedAt: now.Add(-time.Hour)},
		{ID: "run-fresh", Status: models.RunStatusRunning, UpdatedAt: now.Add(-time.Minute)},
		{ID: "run-waiting", Status: models.RunStatusWaiting, UpdatedAt: now.Add(-time.Hour)},
	}
	for _, run := range seed {
		require.NoError(t, store.Runs().Create(ctx, run))
	}

	stalled, err := store.Runs().ListStalled(ctx, cutoff, 100)
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, "run-stalled", stalled[0].ID)
}

func TestWorkflowSaveAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	workflow := &models.WorkflowDefinition{
		ID: "wf-1", Name: "Welcome series", TriggerType: models.TriggerClientCreated, Enabled: true,
	}
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	stored, err := store.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome series", stored.Name)

	require.NoError(t, store.Workflows().Delete(ctx, "wf-1"))

	_, err = store.Workflows().GetByID(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = store.Workflows().Delete(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestListEnabledByTrigger(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	seed := []*models.WorkflowDefinition{
		{ID: "wf-1", Name: "Welcome", TriggerType: models.TriggerClientCreated, Enabled: true},
		{ID: "wf-2", Name: "Welcome v2", TriggerType: models.TriggerClientCreated, Enabled: true},
		{ID: "wf-3", Name: "Paused", TriggerType: models.TriggerClientCreated, Enabled: false},
		{ID: "wf-4", Name: "Job followup", TriggerType: models.TriggerJobCompleted, Enabled: true},
	}
	for _, workflow := range seed {
		require.NoError(t, store.Workflows().Save(ctx, workflow))
	}

	matched, err := store.Workflows().ListEnabledByTrigger(ctx, models.TriggerClientCreated)
	require.NoError(t, err)

	ids := make([]string, 0, len(matched))
	for _, workflow := range matched {
		ids = append(ids, workflow.ID)
	}

	assert.ElementsMatch(t, []string{"wf-1", "wf-2"}, ids)
}

func TestEmailLogDedupKeyLookup(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.EmailLog().FindByDedupKey(ctx, "run-1:0")
	assert.ErrorIs(t, err, persistence.ErrEmailLogNotFound)

	require.NoError(t, store.EmailLog().Create(ctx, &models.EmailLog{
		ID:       "em-1",
		DedupKey: "run-1:0",
		To:       "ana@example.com",
		Subject:  "Welcome aboard",
		SentAt:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}))

	entry, err := store.EmailLog().FindByDedupKey(ctx, "run-1:0")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", entry.To)
}

func TestSanitizedIDsStayInsideRoot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Clients().Save(ctx, &models.Client{ID: "../escape", Email: "x@example.com"}))

	client, err := store.Clients().GetByID(ctx, "../escape")
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", client.Email)
}
