// Package runcontext resolves a run's bound entity reference into the set
// of related entities conditions and templates are evaluated against.
package runcontext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
)

// Resolver loads the entity graph for a run: the bound entity, its owning
// client when the binding is a job or quote, the assigned technician, and
// the company settings templates reference.
type Resolver struct {
	clients     persistence.ClientRepository
	jobs        persistence.JobRepository
	quotes      persistence.QuoteRepository
	technicians persistence.TechnicianRepository
	company     *models.CompanySettings
	logger      *slog.Logger
}

func NewResolver(store persistence.Persistence, company *models.CompanySettings, logger *slog.Logger) *Resolver {
	return &Resolver{
		clients:     store.Clients(),
		jobs:        store.Jobs(),
		quotes:      store.Quotes(),
		technicians: store.Technicians(),
		company:     company,
		logger:      logger.With("module", "runcontext"),
	}
}

// Resolve builds the entity context for a bound reference. A tagged
// reference dispatches directly to its collection; untagged references from
// legacy runs fall back to probing client, then job, then quote. A miss
// everywhere yields an empty context (plus company settings), which makes
// gated conditions fail closed rather than erroring.
func (r *Resolver) Resolve(ctx context.Context, ref models.EntityRef) (*models.EntityContext, error) {
	ec := &models.EntityContext{Company: r.company}

	switch ref.Type {
	case models.EntityClient:
		return ec, r.resolveClient(ctx, ref.ID, ec)
	case models.EntityJob:
		return ec, r.resolveJob(ctx, ref.ID, ec)
	case models.EntityQuote:
		return ec, r.resolveQuote(ctx, ref.ID, ec)
	case "":
		return ec, r.probe(ctx, ref.ID, ec)
	default:
		return nil, fmt.Errorf("unknown entity type %q", ref.Type)
	}
}

// probe tries each collection in order; first hit wins. Id-space collisions
// across collections resolve to whichever is probed first, which is why new
// runs carry an explicit type tag.
func (r *Resolver) probe(ctx context.Context, id string, ec *models.EntityContext) error {
	err := r.resolveClient(ctx, id, ec)
	if err != nil || ec.Client != nil {
		return err
	}

	err = r.resolveJob(ctx, id, ec)
	if err != nil || ec.Job != nil {
		return err
	}

	err = r.resolveQuote(ctx, id, ec)
	if err != nil || ec.Quote != nil {
		return err
	}

	r.logger.DebugContext(ctx, "Entity did not resolve in any collection", "entity_id", id)

	return nil
}

func (r *Resolver) resolveClient(ctx context.Context, id string, ec *models.EntityContext) error {
	client, err := r.clients.GetByID(ctx, id)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to load client %s: %w", id, err)
	}

	ec.Client = client

	return nil
}

func (r *Resolver) resolveJob(ctx context.Context, id string, ec *models.EntityContext) error {
	job, err := r.jobs.GetByID(ctx, id)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to load job %s: %w", id, err)
	}

	ec.Job = job

	if job.ClientID != "" {
		if err := r.resolveClient(ctx, job.ClientID, ec); err != nil {
			return err
		}
	}

	if job.TechnicianID != "" {
		tech, err := r.technicians.GetByID(ctx, job.TechnicianID)
		if err != nil && !persistence.IsEntityNotFound(err) {
			return fmt.Errorf("failed to load technician %s: %w", job.TechnicianID, err)
		}

		ec.Technician = tech
	}

	return nil
}

func (r *Resolver) resolveQuote(ctx context.Context, id string, ec *models.EntityContext) error {
	quote, err := r.quotes.GetByID(ctx, id)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to load quote %s: %w", id, err)
	}

	ec.Quote = quote

	if quote.ClientID != "" {
		if err := r.resolveClient(ctx, quote.ClientID, ec); err != nil {
			return err
		}
	}

	return nil
}
