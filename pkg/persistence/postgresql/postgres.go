// Package postgresql provides the PostgreSQL persistence implementation,
// the production backend for runs, workflows and business records.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/persistence/sqlbase"
)

type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	runs        *RunRepository
	workflows   *WorkflowRepository
	clients     *ClientRepository
	jobs        *JobRepository
	quotes      *QuoteRepository
	invoices    *InvoiceRepository
	technicians *TechnicianRepository
	tasks       *TaskRepository
	emailLog    *EmailLogRepository
}

// NewPersistence connects, runs migrations, and returns the store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		runs:        &RunRepository{db: database, logger: logger},
		workflows:   &WorkflowRepository{db: database, logger: logger},
		clients:     &ClientRepository{db: database},
		jobs:        &JobRepository{db: database},
		quotes:      &QuoteRepository{db: database},
		invoices:    &InvoiceRepository{db: database},
		technicians: &TechnicianRepository{db: database},
		tasks:       &TaskRepository{db: database},
		emailLog:    &EmailLogRepository{db: database},
	}, nil
}

func (p *Persistence) Runs() persistence.RunRepository               { return p.runs }
func (p *Persistence) Workflows() persistence.WorkflowRepository     { return p.workflows }
func (p *Persistence) Clients() persistence.ClientRepository         { return p.clients }
func (p *Persistence) Jobs() persistence.JobRepository               { return p.jobs }
func (p *Persistence) Quotes() persistence.QuoteRepository           { return p.quotes }
func (p *Persistence) Invoices() persistence.InvoiceRepository       { return p.invoices }
func (p *Persistence) Technicians() persistence.TechnicianRepository { return p.technicians }
func (p *Persistence) Tasks() persistence.TaskRepository             { return p.tasks }
func (p *Persistence) EmailLog() persistence.EmailLogRepository      { return p.emailLog }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
