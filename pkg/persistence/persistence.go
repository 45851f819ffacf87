// Package persistence defines the storage contracts the engine depends on.
// The engine treats every collection as an opaque record store; file and
// postgresql implementations live in subpackages.
package persistence

import (
	"context"
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
)

// RunRepository stores automation runs, the engine's only mutable state.
//
// Update is a compare-and-swap: it commits only if the stored version still
// matches run.Version, then increments it. A lost race returns
// ErrVersionConflict and must not partially apply.
type RunRepository interface {
	Create(ctx context.Context, run *models.AutomationRun) error
	GetByID(ctx context.Context, id string) (*models.AutomationRun, error)
	Update(ctx context.Context, run *models.AutomationRun) error

	// ListDue returns WAITING runs whose NextRunAt is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutomationRun, error)

	// ListStalled returns RUNNING runs not updated since the cutoff. Such
	// runs lost their advance job and need the sweeper to re-enqueue them.
	ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]*models.AutomationRun, error)
}

// WorkflowRepository stores authored workflow definitions. The engine only
// reads them; the authoring surface owns writes.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	List(ctx context.Context) ([]*models.WorkflowDefinition, error)
	ListEnabledByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error)
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
}

// ClientRepository reads clients for context resolution and writes back tag
// mutations.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
	Save(ctx context.Context, client *models.Client) error
}

// JobRepository reads jobs for context resolution and writes back status
// changes.
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*models.Job, error)
	Save(ctx context.Context, job *models.Job) error
}

type QuoteRepository interface {
	GetByID(ctx context.Context, id string) (*models.Quote, error)
}

type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
}

type TechnicianRepository interface {
	GetByID(ctx context.Context, id string) (*models.Technician, error)
}

// TaskRepository is insert-only from the engine's perspective.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
}

// EmailLogRepository is the insert-only audit sink for outbound email.
// FindByDedupKey backs the double-send guard.
type EmailLogRepository interface {
	Create(ctx context.Context, entry *models.EmailLog) error
	FindByDedupKey(ctx context.Context, key string) (*models.EmailLog, error)
}

// Persistence bundles every repository behind one handle.
type Persistence interface {
	Runs() RunRepository
	Workflows() WorkflowRepository
	Clients() ClientRepository
	Jobs() JobRepository
	Quotes() QuoteRepository
	Invoices() InvoiceRepository
	Technicians() TechnicianRepository
	Tasks() TaskRepository
	EmailLog() EmailLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
