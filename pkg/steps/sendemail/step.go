// Package sendemail implements the send_email step: resolve a recipient,
// interpolate the subject and body, dispatch through the mailer, and record
// the send in the email audit log.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/protocol"
	"github.com/fieldsuite/cadence/pkg/template"
)

// ErrMissingRecipient is terminal for the run: the step could not resolve
// any destination address.
var ErrMissingRecipient = errors.New("no recipient address resolved")

// Recipient modes for the "to" config key. Anything containing "@" is
// treated as a custom literal address.
const (
	RecipientClient     = "client"
	RecipientTechnician = "technician"
)

func NewFactory(mailer protocol.Mailer, emailLog persistence.EmailLogRepository) *Factory {
	return &Factory{mailer: mailer, emailLog: emailLog}
}

type Factory struct {
	mailer   protocol.Mailer
	emailLog persistence.EmailLogRepository
}

func (*Factory) Kind() models.StepKind {
	return models.StepSendEmail
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	if config == nil {
		config = map[string]any{}
	}

	to, _ := config["to"].(string)
	if to == "" {
		to = RecipientClient
	}

	subject, _ := config["subject"].(string)
	html, _ := config["html"].(string)

	if html == "" {
		// Older definitions used "body".
		html, _ = config["body"].(string)
	}

	return &Step{
		mailer:   f.mailer,
		emailLog: f.emailLog,
		to:       to,
		subject:  subject,
		html:     html,
	}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient: 'client', 'technician', or a literal address",
				"default":     RecipientClient,
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line; supports {{resource.field}} tokens",
			},
			"html": map[string]any{
				"type":        "string",
				"description": "HTML body; supports {{resource.field}} tokens",
			},
		},
		"required": []string{"subject"},
	}
}

type Step struct {
	mailer   protocol.Mailer
	emailLog persistence.EmailLogRepository
	to       string
	subject  string
	html     string
}

func (s *Step) Execute(ctx context.Context, env protocol.StepEnv, entityCtx *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	address := s.resolveRecipient(entityCtx)
	if address == "" {
		return protocol.StepResult{}, fmt.Errorf("recipient %q: %w", s.to, ErrMissingRecipient)
	}

	// Redelivered advance jobs must not double-send: the audit log entry
	// written on first success doubles as the dedup record.
	existing, err := s.emailLog.FindByDedupKey(ctx, env.DedupKey())
	if err != nil && !errors.Is(err, persistence.ErrEmailLogNotFound) {
		return protocol.StepResult{}, fmt.Errorf("failed to check email dedup key: %w", err)
	}

	if existing != nil {
		logger.Info("Email already sent for this step, skipping dispatch",
			"dedup_key", env.DedupKey(), "to", existing.To)

		return protocol.Continue(), nil
	}

	msg := protocol.EmailMessage{
		To:      address,
		Subject: template.Render(s.subject, entityCtx),
		HTML:    template.Render(s.html, entityCtx),
		Tags:    []string{"automation", env.RunID},
	}

	err = s.mailer.Send(ctx, msg)
	if err != nil {
		return protocol.StepResult{}, fmt.Errorf("failed to send email to %s: %w", address, err)
	}

	entry := &models.EmailLog{
		ID:        "email-" + uuid.New().String()[:8],
		RunID:     env.RunID,
		StepIndex: env.StepIndex,
		DedupKey:  env.DedupKey(),
		To:        address,
		Subject:   msg.Subject,
		Status:    "sent",
		SentAt:    env.Now,
	}

	err = s.emailLog.Create(ctx, entry)
	if err != nil {
		return protocol.StepResult{}, fmt.Errorf("failed to record email log entry: %w", err)
	}

	logger.Info("Sent email", "to", address, "subject", msg.Subject)

	return protocol.Continue(), nil
}

// resolveRecipient maps the configured "to" mode onto an address from the
// context. A literal address (anything with an @) passes through.
func (s *Step) resolveRecipient(entityCtx *models.EntityContext) string {
	switch s.to {
	case RecipientClient:
		if entityCtx != nil && entityCtx.Client != nil {
			return entityCtx.Client.Email
		}

		return ""
	case RecipientTechnician:
		if entityCtx != nil && entityCtx.Technician != nil {
			return entityCtx.Technician.Email
		}

		return ""
	default:
		if strings.Contains(s.to, "@") {
			return s.to
		}

		return ""
	}
}
