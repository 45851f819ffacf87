// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound indicates no automation run exists for the given id.
	ErrRunNotFound = errors.New("run not found")

	// ErrWorkflowNotFound indicates no workflow definition exists for the
	// given id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrEntityNotFound indicates a business entity lookup missed.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEmailLogNotFound indicates no email log entry matched.
	ErrEmailLogNotFound = errors.New("email log entry not found")

	// ErrVersionConflict indicates a compare-and-swap update lost a race
	// with a concurrent writer. Nothing was applied.
	ErrVersionConflict = errors.New("run version conflict")

	// ErrRunAlreadyExists indicates a run with the same id already exists.
	ErrRunAlreadyExists = errors.New("run already exists")
)

// RunError wraps run-store errors with operation context.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a run error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// IsRunNotFound checks if an error indicates a missing run.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsEntityNotFound checks if an error indicates a missing business entity.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsVersionConflict checks if an error indicates a lost CAS race.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
