package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
)

// RunRepository handles automation run storage.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const runColumns = `
	id
  , workflow_id
  , entity_type
  , entity_id
  , status
  , current_step_index
  , next_run_at
  , logs
  , completed_at
  , version
  , created_at
  , updated_at
`

func (r *RunRepository) Create(ctx context.Context, run *models.AutomationRun) error {
	logsJSON, err := marshalLogs(run.Logs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.Entity.Type,
		run.Entity.ID,
		run.Status,
		run.CurrentStepIndex,
		run.NextRunAt,
		logsJSON,
		run.CompletedAt,
		run.Version,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.ErrRunAlreadyExists
		}

		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.AutomationRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

// Update commits only when the stored version still matches run.Version.
// The WHERE clause carries the compare; zero rows affected means either a
// lost race or a missing run.
func (r *RunRepository) Update(ctx context.Context, run *models.AutomationRun) error {
	logsJSON, err := marshalLogs(run.Logs)
	if err != nil {
		return err
	}

	query := `
		UPDATE runs SET
			status = $1,
			current_step_index = $2,
			next_run_at = $3,
			logs = $4,
			completed_at = $5,
			version = version + 1,
			updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Status,
		run.CurrentStepIndex,
		run.NextRunAt,
		logsJSON,
		run.CompletedAt,
		run.UpdatedAt,
		run.ID,
		run.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		var exists bool

		err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM runs WHERE id = $1)", run.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check run existence: %w", err)
		}

		if !exists {
			return persistence.ErrRunNotFound
		}

		return persistence.ErrVersionConflict
	}

	run.Version++

	return nil
}

func (r *RunRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutomationRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'WAITING' AND next_run_at <= $1
		ORDER BY next_run_at
		LIMIT $2
	`

	return r.queryRuns(ctx, query, now, limit)
}

func (r *RunRepository) ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]*models.AutomationRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'RUNNING' AND updated_at <= $1
		ORDER BY updated_at
		LIMIT $2
	`

	return r.queryRuns(ctx, query, cutoff, limit)
}

func (r *RunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]*models.AutomationRun, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.AutomationRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*models.AutomationRun, error) {
	var (
		run      models.AutomationRun
		logsJSON []byte
	)

	err := scanner.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.Entity.Type,
		&run.Entity.ID,
		&run.Status,
		&run.CurrentStepIndex,
		&run.NextRunAt,
		&logsJSON,
		&run.CompletedAt,
		&run.Version,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if logsJSON != nil {
		err := json.Unmarshal(logsJSON, &run.Logs)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run logs: %w", err)
		}
	}

	return &run, nil
}

func marshalLogs(logs []models.RunLogEntry) ([]byte, error) {
	if logs == nil {
		logs = []models.RunLogEntry{}
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run logs: %w", err)
	}

	return data, nil
}
