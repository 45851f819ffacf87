package registry

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/steps/delay"
	"github.com/fieldsuite/cadence/pkg/steps/waituntil"
)

func testRegistry() *Registry {
	r := NewRegistry(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	r.Register(delay.NewFactory())
	r.Register(waituntil.NewFactory())

	return r
}

func TestCreateKnownKind(t *testing.T) {
	r := testRegistry()

	step, err := r.Create(models.StepDelay, map[string]any{"hours": float64(1)})
	require.NoError(t, err)
	assert.NotNil(t, step)
}

func TestCreateUnknownKind(t *testing.T) {
	r := testRegistry()

	_, err := r.Create(models.StepKind("teleport"), nil)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name    string
		kind    models.StepKind
		config  map[string]any
		wantErr bool
	}{
		{"valid delay", models.StepDelay, map[string]any{"days": 2}, false},
		{"nil config allowed", models.StepDelay, nil, false},
		{"wrong type rejected", models.StepDelay, map[string]any{"days": "two"}, true},
		{"negative rejected", models.StepDelay, map[string]any{"hours": -1}, true},
		{"unregistered kind", models.StepKind("teleport"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateConfig(tt.kind, tt.config)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	r := testRegistry()
	assert.ElementsMatch(t, []models.StepKind{models.StepDelay, models.StepWaitUntil}, r.Kinds())
}
