package waituntil

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsuite/cadence/pkg/protocol"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func TestWaitUntilAbsoluteTime(t *testing.T) {
	factory := NewFactory()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	target := now.Add(72 * time.Hour)

	step, err := factory.Create(map[string]any{"at": target.Format(time.RFC3339)})
	require.NoError(t, err)

	result, err := step.Execute(context.Background(), protocol.StepEnv{Now: now}, nil, testLogger)
	require.NoError(t, err)

	assert.Equal(t, protocol.ActionSuspend, result.Action)
	assert.True(t, result.WakeAt.Equal(target))
}

func TestWaitUntilCronNextOccurrence(t *testing.T) {
	factory := NewFactory()
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	// Daily at 08:00: next occurrence is tomorrow morning.
	step, err := factory.Create(map[string]any{"cron": "0 8 * * *"})
	require.NoError(t, err)

	result, err := step.Execute(context.Background(), protocol.StepEnv{Now: now}, nil, testLogger)
	require.NoError(t, err)

	assert.Equal(t, protocol.ActionSuspend, result.Action)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), result.WakeAt)
}

func TestWaitUntilFallback(t *testing.T) {
	factory := NewFactory()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"no target configured", map[string]any{}},
		{"past absolute time", map[string]any{"at": "2020-01-01T00:00:00Z"}},
		{"unparseable time", map[string]any{"at": "next tuesday"}},
		{"invalid cron", map[string]any{"cron": "every day at noon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := factory.Create(tt.config)
			require.NoError(t, err)

			result, err := step.Execute(context.Background(), protocol.StepEnv{Now: now}, nil, testLogger)
			require.NoError(t, err)
			assert.Equal(t, protocol.ActionSuspend, result.Action)
			assert.Equal(t, now.Add(fallbackDelay), result.WakeAt)
		})
	}
}
