package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
)

// ClientRepository reads clients and writes back tag mutations.
type ClientRepository struct {
	db *sql.DB
}

func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, address, status, tags, created_at, updated_at
		FROM clients
		WHERE id = $1
	`

	var (
		client   models.Client
		tagsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.Phone,
		&client.Address,
		&client.Status,
		&tagsJSON,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to scan client: %w", err)
	}

	if tagsJSON != nil {
		err := json.Unmarshal(tagsJSON, &client.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal client tags: %w", err)
		}
	}

	return &client, nil
}

func (r *ClientRepository) Save(ctx context.Context, client *models.Client) error {
	tags := client.Tags
	if tags == nil {
		tags = []string{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal client tags: %w", err)
	}

	query := `
		INSERT INTO clients (id, first_name, last_name, email, phone, address, status, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			status = EXCLUDED.status,
			tags = EXCLUDED.tags,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		client.ID,
		client.FirstName,
		client.LastName,
		client.Email,
		client.Phone,
		client.Address,
		client.Status,
		tagsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}

	return nil
}

// JobRepository reads jobs and writes back status changes.
type JobRepository struct {
	db *sql.DB
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, client_id, technician_id, date, service_name, address, status, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job models.Job

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.ClientID,
		&job.TechnicianID,
		&job.Date,
		&job.ServiceName,
		&job.Address,
		&job.Status,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	return &job, nil
}

func (r *JobRepository) Save(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, client_id, technician_id, date, service_name, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			technician_id = EXCLUDED.technician_id,
			date = EXCLUDED.date,
			service_name = EXCLUDED.service_name,
			address = EXCLUDED.address,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.ClientID,
		job.TechnicianID,
		job.Date,
		job.ServiceName,
		job.Address,
		job.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	return nil
}

type QuoteRepository struct {
	db *sql.DB
}

func (r *QuoteRepository) GetByID(ctx context.Context, id string) (*models.Quote, error) {
	query := `SELECT id, client_id, total, status, link, created_at FROM quotes WHERE id = $1`

	var quote models.Quote

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&quote.ID,
		&quote.ClientID,
		&quote.Total,
		&quote.Status,
		&quote.Link,
		&quote.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}

	return &quote, nil
}

type InvoiceRepository struct {
	db *sql.DB
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := `SELECT id, client_id, total, status, link, created_at FROM invoices WHERE id = $1`

	var invoice models.Invoice

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&invoice.ID,
		&invoice.ClientID,
		&invoice.Total,
		&invoice.Status,
		&invoice.Link,
		&invoice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	return &invoice, nil
}

type TechnicianRepository struct {
	db *sql.DB
}

func (r *TechnicianRepository) GetByID(ctx context.Context, id string) (*models.Technician, error) {
	query := `SELECT id, name, email FROM technicians WHERE id = $1`

	var tech models.Technician

	err := r.db.QueryRowContext(ctx, query, id).Scan(&tech.ID, &tech.Name, &tech.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to scan technician: %w", err)
	}

	return &tech, nil
}

// TaskRepository is insert-only from the engine's perspective.
type TaskRepository struct {
	db *sql.DB
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, client_id, job_id, title, description, due_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		nullable(task.ClientID),
		nullable(task.JobID),
		task.Title,
		task.Description,
		task.DueAt,
		task.Status,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// EmailLogRepository is the insert-only audit sink for outbound email.
type EmailLogRepository struct {
	db *sql.DB
}

func (r *EmailLogRepository) Create(ctx context.Context, entry *models.EmailLog) error {
	query := `
		INSERT INTO email_log (id, run_id, step_index, dedup_key, to_address, subject, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.RunID,
		entry.StepIndex,
		entry.DedupKey,
		entry.To,
		entry.Subject,
		entry.Status,
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email log entry: %w", err)
	}

	return nil
}

func (r *EmailLogRepository) FindByDedupKey(ctx context.Context, key string) (*models.EmailLog, error) {
	query := `
		SELECT id, run_id, step_index, dedup_key, to_address, subject, status, sent_at
		FROM email_log
		WHERE dedup_key = $1
	`

	var entry models.EmailLog

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&entry.ID,
		&entry.RunID,
		&entry.StepIndex,
		&entry.DedupKey,
		&entry.To,
		&entry.Subject,
		&entry.Status,
		&entry.SentAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEmailLogNotFound
		}

		return nil, fmt.Errorf("failed to scan email log entry: %w", err)
	}

	return &entry, nil
}

// nullable maps an empty string to NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
