// Package updatestatus implements the update_entity_status step: set the
// resolved job's status. Without a job in context the step is a no-op.
package updatestatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

var ErrMissingStatus = errors.New("update_entity_status step requires a status")

func NewFactory(jobs persistence.JobRepository) *Factory {
	return &Factory{jobs: jobs}
}

type Factory struct {
	jobs persistence.JobRepository
}

func (*Factory) Kind() models.StepKind {
	return models.StepUpdateEntityStatus
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	status, _ := config["status"].(string)
	if status == "" {
		return nil, ErrMissingStatus
	}

	return &Step{jobs: f.jobs, status: status}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "New status for the resolved job",
			},
		},
		"required": []string{"status"},
	}
}

type Step struct {
	jobs   persistence.JobRepository
	status string
}

func (s *Step) Execute(ctx context.Context, _ protocol.StepEnv, entityCtx *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	if entityCtx == nil || entityCtx.Job == nil {
		logger.Info("No job in context, status update is a no-op", "status", s.status)

		return protocol.Continue(), nil
	}

	job := entityCtx.Job
	job.Status = s.status

	err := s.jobs.Save(ctx, job)
	if err != nil {
		return protocol.StepResult{}, fmt.Errorf("failed to update job %s status: %w", job.ID, err)
	}

	logger.Info("Updated job status", "job_id", job.ID, "status", s.status)

	return protocol.Continue(), nil
}
