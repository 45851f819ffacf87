// Package delay implements the delay step: suspend the run for a relative
// offset of days, hours and minutes.
package delay

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) Kind() models.StepKind {
	return models.StepDelay
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	if config == nil {
		config = map[string]any{}
	}

	return &Step{
		Days:    asInt(config["days"]),
		Hours:   asInt(config["hours"]),
		Minutes: asInt(config["minutes"]),
		Instant: asBool(config["instant"]),
	}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days":    map[string]any{"type": "integer", "minimum": 0},
			"hours":   map[string]any{"type": "integer", "minimum": 0},
			"minutes": map[string]any{"type": "integer", "minimum": 0},
			"instant": map[string]any{
				"type":        "boolean",
				"description": "Treat the delay as zero-length and continue immediately",
			},
		},
	}
}

type Step struct {
	Days    int
	Hours   int
	Minutes int
	Instant bool
}

// Duration is the configured offset.
func (s *Step) Duration() time.Duration {
	return time.Duration(s.Days)*24*time.Hour +
		time.Duration(s.Hours)*time.Hour +
		time.Duration(s.Minutes)*time.Minute
}

func (s *Step) Execute(_ context.Context, env protocol.StepEnv, _ *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	d := s.Duration()

	if s.Instant || d <= 0 {
		logger.Debug("Delay is instant, continuing")

		return protocol.Continue(), nil
	}

	wakeAt := env.Now.Add(d)

	logger.Info("Suspending run for delay", "duration", d, "wake_at", wakeAt)

	return protocol.Suspend(wakeAt), nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)

	return b
}
