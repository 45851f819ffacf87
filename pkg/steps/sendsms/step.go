// Package sendsms is a placeholder for the send_sms step. The SMS provider
// integration is not wired up yet; the step logs its intent and continues
// so workflows containing SMS steps still run end to end.
package sendsms

import (
	"context"
	"log/slog"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/protocol"
	"github.com/fieldsuite/cadence/pkg/template"
)

func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) Kind() models.StepKind {
	return models.StepSendSMS
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	if config == nil {
		config = map[string]any{}
	}

	body, _ := config["body"].(string)

	return &Step{body: body}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"body": map[string]any{
				"type":        "string",
				"description": "Message body; supports {{resource.field}} tokens",
			},
		},
	}
}

type Step struct {
	body string
}

func (s *Step) Execute(_ context.Context, _ protocol.StepEnv, entityCtx *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	phone := ""
	if entityCtx != nil && entityCtx.Client != nil {
		phone = entityCtx.Client.Phone
	}

	logger.Info("SMS sending not implemented, logging intent only",
		"to", phone,
		"body", template.Render(s.body, entityCtx))

	return protocol.Continue(), nil
}
