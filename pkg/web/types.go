// Package web provides the HTTP surface: business event intake, run
// inspection and control, and workflow authoring.
package web

import (
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
)

// IngestEventRequest is the request body for POST /events.
type IngestEventRequest struct {
	Type       models.TriggerType `json:"type"        validate:"required"`
	EntityType models.EntityType  `json:"entity_type" validate:"omitempty,oneof=CLIENT JOB QUOTE"`
	EntityID   string             `json:"entity_id"   validate:"required"`
	OccurredAt *time.Time         `json:"occurred_at,omitempty"`
}

// IngestEventResponse reports the runs an event started.
type IngestEventResponse struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary is the compact run representation in list responses.
type RunSummary struct {
	ID               string           `json:"id"`
	WorkflowID       string           `json:"workflow_id"`
	Status           models.RunStatus `json:"status"`
	CurrentStepIndex int              `json:"current_step_index"`
	NextRunAt        *time.Time       `json:"next_run_at,omitempty"`
}

func toRunSummary(run *models.AutomationRun) RunSummary {
	return RunSummary{
		ID:               run.ID,
		WorkflowID:       run.WorkflowID,
		Status:           run.Status,
		CurrentStepIndex: run.CurrentStepIndex,
		NextRunAt:        run.NextRunAt,
	}
}

// SaveWorkflowRequest is the request body for creating or replacing a
// workflow definition.
type SaveWorkflowRequest struct {
	Name          string                 `json:"name"           validate:"required,min=3"`
	TriggerType   models.TriggerType     `json:"trigger_type"   validate:"required"`
	TriggerFilter *models.ConditionGroup `json:"trigger_filter,omitempty"`
	Steps         []models.Step          `json:"steps"`
	Enabled       bool                   `json:"enabled"`
}
