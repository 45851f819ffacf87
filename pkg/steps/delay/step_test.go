package delay

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

func TestDelaySuspensionMath(t *testing.T) {
	factory := NewFactory()

	step, err := factory.Create(map[string]any{
		"days":    float64(1),
		"hours":   float64(2),
		"minutes": float64(30),
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	env := protocol.StepEnv{RunID: "run-1", StepIndex: 1, Now: now}

	result, err := step.Execute(context.Background(), env, nil, testLogger)
	require.NoError(t, err)

	assert.Equal(t, protocol.ActionSuspend, result.Action)
	assert.Equal(t, now.Add(26*time.Hour+30*time.Minute), result.WakeAt)
}

func TestDelayInstantContinues(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"instant flag", map[string]any{"days": float64(3), "instant": true}},
		{"zero duration", map[string]any{}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := factory.Create(tt.config)
			require.NoError(t, err)

			result, err := step.Execute(context.Background(), protocol.StepEnv{Now: time.Now()}, nil, testLogger)
			require.NoError(t, err)
			assert.Equal(t, protocol.ActionContinue, result.Action)
		})
	}
}
