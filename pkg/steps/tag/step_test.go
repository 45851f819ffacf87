package tag

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

type clientStore struct {
	saved *models.Client
	calls int
}

func (s *clientStore) GetByID(_ context.Context, _ string) (*models.Client, error) {
	return s.saved, nil
}

func (s *clientStore) Save(_ context.Context, client *models.Client) error {
	s.saved = client
	s.calls++

	return nil
}

func TestAddTagIdempotent(t *testing.T) {
	store := &clientStore{}
	factory := NewAddFactory(store)

	step, err := factory.Create(map[string]any{"tag": "follow-up"})
	require.NoError(t, err)

	client := &models.Client{ID: "client-1", Tags: []string{"vip"}}
	entityCtx := &models.EntityContext{Client: client}

	_, err = step.Execute(context.Background(), protocol.StepEnv{}, entityCtx, testLogger)
	require.NoError(t, err)

	// Second application is a no-op and does not write again.
	_, err = step.Execute(context.Background(), protocol.StepEnv{}, entityCtx, testLogger)
	require.NoError(t, err)

	assert.Equal(t, []string{"vip", "follow-up"}, client.Tags)
	assert.Equal(t, 1, store.calls)
}

func TestRemoveAbsentTagIsNoOp(t *testing.T) {
	store := &clientStore{}
	factory := NewRemoveFactory(store)

	step, err := factory.Create(map[string]any{"tag": "missing"})
	require.NoError(t, err)

	client := &models.Client{ID: "client-1", Tags: []string{"vip"}}

	result, err := step.Execute(context.Background(), protocol.StepEnv{}, &models.EntityContext{Client: client}, testLogger)
	require.NoError(t, err)

	assert.Equal(t, protocol.ActionContinue, result.Action)
	assert.Equal(t, []string{"vip"}, client.Tags)
	assert.Zero(t, store.calls)
}

func TestTagStepWithoutClientIsNoOp(t *testing.T) {
	store := &clientStore{}
	factory := NewAddFactory(store)

	step, err := factory.Create(map[string]any{"tag": "vip"})
	require.NoError(t, err)

	result, err := step.Execute(context.Background(), protocol.StepEnv{}, &models.EntityContext{}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, protocol.ActionContinue, result.Action)
	assert.Zero(t, store.calls)
}

func TestFactoryRejectsEmptyTag(t *testing.T) {
	factory := NewAddFactory(&clientStore{})

	_, err := factory.Create(map[string]any{})
	assert.ErrorIs(t, err, ErrMissingTag)
}
