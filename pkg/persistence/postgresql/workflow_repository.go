package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
)

// WorkflowRepository handles workflow definition storage. Steps and the
// trigger filter are stored as JSONB documents; the engine never queries
// inside them.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , name
  , trigger_type
  , trigger_filter
  , steps
  , enabled
  , created_at
  , updated_at
`

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	return r.queryWorkflows(ctx, query)
}

func (r *WorkflowRepository) ListEnabledByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE enabled AND trigger_type = $1
		ORDER BY created_at
	`

	return r.queryWorkflows(ctx, query, trigger)
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.WorkflowDefinition) error {
	stepsJSON, err := json.Marshal(workflow.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	var filterJSON []byte
	if workflow.TriggerFilter != nil {
		filterJSON, err = json.Marshal(workflow.TriggerFilter)
		if err != nil {
			return fmt.Errorf("failed to marshal trigger filter: %w", err)
		}
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trigger_type = EXCLUDED.trigger_type,
			trigger_filter = EXCLUDED.trigger_filter,
			steps = EXCLUDED.steps,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.TriggerType,
		filterJSON,
		stepsJSON,
		workflow.Enabled,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func scanWorkflow(scanner interface{ Scan(dest ...any) error }) (*models.WorkflowDefinition, error) {
	var (
		workflow              models.WorkflowDefinition
		filterJSON, stepsJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.TriggerType,
		&filterJSON,
		&stepsJSON,
		&workflow.Enabled,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if filterJSON != nil {
		err := json.Unmarshal(filterJSON, &workflow.TriggerFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger filter: %w", err)
		}
	}

	if stepsJSON != nil {
		err := json.Unmarshal(stepsJSON, &workflow.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	return &workflow, nil
}
