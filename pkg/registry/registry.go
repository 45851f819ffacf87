// Package registry maps step kinds to their executor factories and
// validates step configuration against each factory's schema.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.StepKind]protocol.StepFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.StepKind]protocol.StepFactory),
	}
}

func (r *Registry) Register(factory protocol.StepFactory) {
	r.factories[factory.Kind()] = factory
}

// Create builds an executor for the step kind bound to the given config.
func (r *Registry) Create(kind models.StepKind, config map[string]any) (protocol.StepExecutor, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("step kind %q not registered", kind)
	}

	return factory.Create(config)
}

// Kinds lists every registered step kind.
func (r *Registry) Kinds() []models.StepKind {
	kinds := make([]models.StepKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}

// ValidateConfig checks a step's config against the factory schema. Used at
// workflow-save time so malformed configs never reach a running step.
func (r *Registry) ValidateConfig(kind models.StepKind, config map[string]any) error {
	factory, ok := r.factories[kind]
	if !ok {
		return fmt.Errorf("step kind %q not registered", kind)
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", kind, err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			return fmt.Errorf("invalid %s config: %s", kind, desc.String())
		}
	}

	return nil
}
