// Package file implements persistence on top of a plain directory tree:
// one JSON file per record, one subdirectory per collection. It is the
// development and test backend; production uses postgresql.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
)

type Persistence struct {
	root string
	mu   sync.RWMutex

	runs        *runRepository
	workflows   *workflowRepository
	clients     *clientRepository
	jobs        *jobRepository
	quotes      *quoteRepository
	invoices    *invoiceRepository
	technicians *technicianRepository
	tasks       *taskRepository
	emailLog    *emailLogRepository
}

// NewPersistence creates the directory tree under root.
func NewPersistence(root string) (*Persistence, error) {
	p := &Persistence{root: root}

	for _, dir := range []string{
		"runs", "workflows", "clients", "jobs", "quotes",
		"invoices", "technicians", "tasks", "email_log",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	p.runs = &runRepository{p: p}
	p.workflows = &workflowRepository{p: p}
	p.clients = &clientRepository{p: p}
	p.jobs = &jobRepository{p: p}
	p.quotes = &quoteRepository{p: p}
	p.invoices = &invoiceRepository{p: p}
	p.technicians = &technicianRepository{p: p}
	p.tasks = &taskRepository{p: p}
	p.emailLog = &emailLogRepository{p: p}

	return p, nil
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

func (p *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", p.root)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// sanitizeID keeps ids filesystem-safe.
func sanitizeID(id string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")

	return r.Replace(id)
}

func (p *Persistence) path(collection, id string) string {
	return filepath.Join(p.root, collection, sanitizeID(id)+".json")
}

// write marshals v to its record file. Caller holds the lock.
func (p *Persistence) write(collection, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", collection, err)
	}

	if err := os.WriteFile(p.path(collection, id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s record: %w", collection, err)
	}

	return nil
}

// read unmarshals a record file into v. Caller holds the lock. A missing
// file returns notFound untouched so each repository maps it to its own
// sentinel.
func (p *Persistence) read(collection, id string, v any, notFound error) error {
	data, err := os.ReadFile(p.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return notFound
		}

		return fmt.Errorf("failed to read %s record: %w", collection, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s record: %w", collection, err)
	}

	return nil
}

// readAll loads every record in a collection. Caller holds the lock.
func readAll[T any](p *Persistence, collection string) ([]*T, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, collection))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s directory: %w", collection, err)
	}

	records := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(p.root, collection, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s record: %w", collection, err)
		}

		record := new(T)
		if err := json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to parse %s record %s: %w", collection, entry.Name(), err)
		}

		records = append(records, record)
	}

	return records, nil
}

type runRepository struct {
	p *Persistence
}

func (r *runRepository) Create(_ context.Context, run *models.AutomationRun) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, err := os.Stat(r.p.path("runs", run.ID)); err == nil {
		return persistence.ErrRunAlreadyExists
	}

	return r.p.write("runs", run.ID, run)
}

func (r *runRepository) GetByID(_ context.Context, id string) (*models.AutomationRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	run := &models.AutomationRun{}
	if err := r.p.read("runs", id, run, persistence.ErrRunNotFound); err != nil {
		return nil, err
	}

	return run, nil
}

// Update commits only if the stored version still matches run.Version, then
// bumps it. The whole check-and-write happens under the store lock, which is
// what makes the swap atomic for this backend.
func (r *runRepository) Update(_ context.Context, run *models.AutomationRun) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored := &models.AutomationRun{}
	if err := r.p.read("runs", run.ID, stored, persistence.ErrRunNotFound); err != nil {
		return err
	}

	if stored.Version != run.Version {
		return persistence.ErrVersionConflict
	}

	run.Version++

	return r.p.write("runs", run.ID, run)
}

func (r *runRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*models.AutomationRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	all, err := readAll[models.AutomationRun](r.p, "runs")
	if err != nil {
		return nil, err
	}

	due := make([]*models.AutomationRun, 0)

	for _, run := range all {
		if run.Status != models.RunStatusWaiting || run.NextRunAt == nil {
			continue
		}

		if run.NextRunAt.After(now) {
			continue
		}

		due = append(due, run)

		if limit > 0 && len(due) >= limit {
			break
		}
	}

	return due, nil
}

func (r *runRepository) ListStalled(_ context.Context, cutoff time.Time, limit int) ([]*models.AutomationRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	all, err := readAll[models.AutomationRun](r.p, "runs")
	if err != nil {
		return nil, err
	}

	stalled := make([]*models.AutomationRun, 0)

	for _, run := range all {
		if run.Status != models.RunStatusRunning || run.UpdatedAt.After(cutoff) {
			continue
		}

		stalled = append(stalled, run)

		if limit > 0 && len(stalled) >= limit {
			break
		}
	}

	return stalled, nil
}

type workflowRepository struct {
	p *Persistence
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	workflow := &models.WorkflowDefinition{}
	if err := r.p.read("workflows", id, workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *workflowRepository) List(_ context.Context) ([]*models.WorkflowDefinition, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	return readAll[models.WorkflowDefinition](r.p, "workflows")
}

func (r *workflowRepository) ListEnabledByTrigger(ctx context.Context, trigger models.TriggerType) ([]*models.WorkflowDefinition, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowDefinition, 0)

	for _, workflow := range all {
		if workflow.Enabled && workflow.TriggerType == trigger {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.WorkflowDefinition) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.write("workflows", workflow.ID, workflow)
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	err := os.Remove(r.p.path("workflows", id))
	if os.IsNotExist(err) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}

type clientRepository struct {
	p *Persistence
}

func (r *clientRepository) GetByID(_ context.Context, id string) (*models.Client, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	client := &models.Client{}
	if err := r.p.read("clients", id, client, persistence.ErrEntityNotFound); err != nil {
		return nil, err
	}

	return client, nil
}

func (r *clientRepository) Save(_ context.Context, client *models.Client) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.write("clients", client.ID, client)
}

type jobRepository struct {
	p *Persistence
}

func (r *jobRepository) GetByID(_ context.Context, id string) (*models.Job, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	job := &models.Job{}
	if err := r.p.read("jobs", id, job, persistence.ErrEntityNotFound); err != nil {
		return nil, err
	}

	return job, nil
}

func (r *jobRepository) Save(_ context.Context, job *models.Job) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.write("jobs", job.ID, job)
}

type quoteRepository struct {
	p *Persistence
}

func (r *quoteRepository) GetByID(_ context.Context, id string) (*models.Quote, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	quote := &models.Quote{}
	if err := r.p.read("quotes", id, quote, persistence.ErrEntityNotFound); err != nil {
		return nil, err
	}

	return quote, nil
}

// Save exists for seeding development data; the engine never writes quotes.
func (r *quoteRepository) Save(_ context.Context, quote *models.Quote) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.write("quotes", quote.ID, quote)
}

type invoiceRepository struct {
	p *Persistence
}

func (r *invoiceRepository) GetByID(_ context.Context, id string) (*models.Invoice, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	invoice := &models.Invoice{}
	if err := r.p.read("invoices", id, invoice, persistence.ErrEntityNotFound); err != nil {
		return nil, err
	}

	return invoice, nil
}

type technicianRepository struct {
	p *Persistence
}

func (r *technicianRepository) GetByID(_ context.Context, id string) (*models.Technician, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	tech := &models.Technician{}
	if err := r.p.read("technicians", id, tech, persistence.ErrEntityNotFound); err != nil {
		return nil, err
	}

	return tech, nil
}

// Save exists for seeding development data.
func (r *technicianRepository) Save(_ context.Context, tech *models.Technician) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.write("technicians", tech.ID, tech)
}

type taskRepository struct {
	p *Persistence
}

func (r *taskRepository) Create(_ context.Context, task *models.Task) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.write("tasks", task.ID, task)
}

type emailLogRepository struct {
	p *Persistence
}

func (r *emailLogRepository) Create(_ context.Context, entry *models.EmailLog) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	// Keyed by dedup key so FindByDedupKey is a single file read.
	return r.p.write("email_log", entry.DedupKey, entry)
}

func (r *emailLogRepository) FindByDedupKey(_ context.Context, key string) (*models.EmailLog, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	entry := &models.EmailLog{}
	if err := r.p.read("email_log", key, entry, persistence.ErrEmailLogNotFound); err != nil {
		return nil, err
	}

	return entry, nil
}
