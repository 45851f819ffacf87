// Package waituntil implements the wait_until step: suspend the run until
// an absolute wall-clock time, given either directly or as the next
// occurrence of a cron expression.
package waituntil

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

// fallbackDelay is used when the configured target cannot be resolved or
// already passed. Exact wait-until semantics are still being settled with
// the workflow builder; the fallback keeps legacy definitions moving.
const fallbackDelay = time.Hour

func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) Kind() models.StepKind {
	return models.StepWaitUntil
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	if config == nil {
		config = map[string]any{}
	}

	at, _ := config["at"].(string)
	cronExpr, _ := config["cron"].(string)

	return &Step{At: at, Cron: cronExpr}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"at": map[string]any{
				"type":        "string",
				"format":      "date-time",
				"description": "Absolute RFC3339 wake time",
			},
			"cron": map[string]any{
				"type":        "string",
				"description": "Wake at the next occurrence of this 5-field cron expression",
			},
		},
	}
}

type Step struct {
	At   string
	Cron string
}

func (s *Step) Execute(_ context.Context, env protocol.StepEnv, _ *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	wakeAt := s.wakeTime(env.Now, logger)

	logger.Info("Suspending run until wall-clock time", "wake_at", wakeAt)

	return protocol.Suspend(wakeAt), nil
}

func (s *Step) wakeTime(now time.Time, logger *slog.Logger) time.Time {
	if s.At != "" {
		at, err := time.Parse(time.RFC3339, s.At)
		if err == nil && at.After(now) {
			return at
		}

		logger.Warn("Configured wake time invalid or in the past, using fallback",
			"at", s.At, "fallback", fallbackDelay)

		return now.Add(fallbackDelay)
	}

	if s.Cron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

		schedule, err := parser.Parse(s.Cron)
		if err == nil {
			return schedule.Next(now)
		}

		logger.Warn("Invalid cron expression, using fallback", "cron", s.Cron, "error", err)
	}

	return now.Add(fallbackDelay)
}
