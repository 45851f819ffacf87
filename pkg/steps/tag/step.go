// Package tag implements the add_tag and remove_tag steps: idempotent
// mutations of the resolved client's tag set.
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

var ErrMissingTag = errors.New("tag step requires a non-empty tag")

// NewAddFactory creates the factory for add_tag steps.
func NewAddFactory(clients persistence.ClientRepository) *Factory {
	return &Factory{clients: clients, kind: models.StepAddTag}
}

// NewRemoveFactory creates the factory for remove_tag steps.
func NewRemoveFactory(clients persistence.ClientRepository) *Factory {
	return &Factory{clients: clients, kind: models.StepRemoveTag}
}

type Factory struct {
	clients persistence.ClientRepository
	kind    models.StepKind
}

func (f *Factory) Kind() models.StepKind {
	return f.kind
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	tag, _ := config["tag"].(string)
	if tag == "" {
		return nil, ErrMissingTag
	}

	return &Step{
		clients: f.clients,
		tag:     tag,
		remove:  f.kind == models.StepRemoveTag,
	}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Tag value to add or remove on the client",
			},
		},
		"required": []string{"tag"},
	}
}

type Step struct {
	clients persistence.ClientRepository
	tag     string
	remove  bool
}

func (s *Step) Execute(ctx context.Context, _ protocol.StepEnv, entityCtx *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	if entityCtx == nil || entityCtx.Client == nil {
		logger.Info("No client in context, tag step is a no-op", "tag", s.tag)

		return protocol.Continue(), nil
	}

	client := entityCtx.Client

	before := len(client.Tags)

	if s.remove {
		client.RemoveTag(s.tag)
	} else {
		client.AddTag(s.tag)
	}

	if len(client.Tags) == before {
		// Already in the desired state, skip the write.
		return protocol.Continue(), nil
	}

	err := s.clients.Save(ctx, client)
	if err != nil {
		return protocol.StepResult{}, fmt.Errorf("failed to save client %s tags: %w", client.ID, err)
	}

	logger.Info("Updated client tags", "client_id", client.ID, "tag", s.tag, "removed", s.remove)

	return protocol.Continue(), nil
}
