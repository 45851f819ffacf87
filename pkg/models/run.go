package models

import "time"

// RunStatus is the lifecycle state of an automation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusWaiting   RunStatus = "WAITING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// Terminal reports whether a run in this status can never progress again.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// LogOutcome is the recorded result of a single step attempt.
type LogOutcome string

const (
	OutcomeSuccess LogOutcome = "SUCCESS"
	OutcomeSkipped LogOutcome = "SKIPPED"
	OutcomeFailed  LogOutcome = "FAILED"
)

// RunLogEntry is one line of the append-only audit trail. Exactly one entry
// is added per step attempt.
type RunLogEntry struct {
	StepIndex int        `json:"step_index"`
	StepKind  StepKind   `json:"step_kind"`
	Outcome   LogOutcome `json:"outcome"`
	Timestamp time.Time  `json:"timestamp"`
	Error     string     `json:"error,omitempty"`
}

// EntityType tags which collection a run's bound entity lives in. Runs
// created before the tag existed carry an empty type and are resolved by
// probing the collections in order.
type EntityType string

const (
	EntityClient EntityType = "CLIENT"
	EntityJob    EntityType = "JOB"
	EntityQuote  EntityType = "QUOTE"
)

// EntityRef points at the business entity a run is bound to.
type EntityRef struct {
	Type EntityType `json:"type,omitempty"`
	ID   string     `json:"id" validate:"required"`
}

// AutomationRun is the engine's mutable execution record. It must survive
// process restarts; the run driver is its only writer.
//
// CurrentStepIndex points at the next step to attempt and only ever
// increases. Version guards concurrent writers: every persist is a
// compare-and-swap against the version that was read.
type AutomationRun struct {
	ID               string        `json:"id"`
	WorkflowID       string        `json:"workflow_id"`
	Entity           EntityRef     `json:"entity"`
	Status           RunStatus     `json:"status"`
	CurrentStepIndex int           `json:"current_step_index"`
	NextRunAt        *time.Time    `json:"next_run_at,omitempty"`
	Logs             []RunLogEntry `json:"logs"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	Version          int           `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// AppendLog records a step attempt in the audit trail.
func (r *AutomationRun) AppendLog(stepIndex int, kind StepKind, outcome LogOutcome, errMsg string, at time.Time) {
	r.Logs = append(r.Logs, RunLogEntry{
		StepIndex: stepIndex,
		StepKind:  kind,
		Outcome:   outcome,
		Timestamp: at,
		Error:     errMsg,
	})
}

// BusinessEvent is an occurrence in the operations domain that may start
// runs for workflows whose trigger type matches.
type BusinessEvent struct {
	Type     TriggerType `json:"type"   validate:"required"`
	Entity   EntityRef   `json:"entity" validate:"required"`
	Occurred time.Time   `json:"occurred_at"`
}
