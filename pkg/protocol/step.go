// Package protocol defines the contracts between the run driver and the
// pluggable step executors.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
)

// StepAction tells the run driver what to do after a step executes.
type StepAction string

const (
	// ActionContinue advances to the next step in the same pass.
	ActionContinue StepAction = "continue"

	// ActionSuspend parks the run until WakeAt; an external wake re-invokes
	// the driver at the step after this one.
	ActionSuspend StepAction = "suspend"
)

// StepResult is the outcome of a successful step execution.
type StepResult struct {
	Action StepAction
	WakeAt time.Time
}

// Continue is the result for steps that finish immediately.
func Continue() StepResult {
	return StepResult{Action: ActionContinue}
}

// Suspend parks the run until the given wall-clock time.
func Suspend(wakeAt time.Time) StepResult {
	return StepResult{Action: ActionSuspend, WakeAt: wakeAt}
}

// StepEnv identifies the run position a step executes in. Executors with
// non-idempotent side effects derive their dedup keys from it.
type StepEnv struct {
	RunID     string
	StepIndex int
	Now       time.Time
}

// DedupKey is the replay guard key for this position.
func (e StepEnv) DedupKey() string {
	return e.RunID + ":" + itoa(e.StepIndex)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[i:])
}

// StepExecutor performs one step's side effect against the resolved entity
// context and reports whether the run continues or suspends.
type StepExecutor interface {
	Execute(ctx context.Context, env StepEnv, entityCtx *models.EntityContext, logger *slog.Logger) (StepResult, error)
}

// StepFactory creates executors for one step kind. Create binds the
// step's authored config; Schema describes that config for validation at
// workflow-save time.
type StepFactory interface {
	Kind() models.StepKind
	Create(config map[string]any) (StepExecutor, error)
	Schema() map[string]any
}
