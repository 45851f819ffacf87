// Package mailer provides the outbound email capability behind the
// protocol.Mailer contract: an HTTP relay for real deployments and a
// log-only mailer for development.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldsuite/cadence/pkg/protocol"
)

// HTTPMailer posts messages to an email relay endpoint as JSON.
type HTTPMailer struct {
	endpoint string
	apiKey   string
	replyTo  string
	client   *http.Client
	logger   *slog.Logger
}

func NewHTTPMailer(endpoint, apiKey, replyTo string, logger *slog.Logger) *HTTPMailer {
	return &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		replyTo:  replyTo,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger.With("module", "mailer"),
	}
}

type relayPayload struct {
	To      string   `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Tags    []string `json:"tags,omitempty"`
}

func (m *HTTPMailer) Send(ctx context.Context, msg protocol.EmailMessage) error {
	payload, err := json.Marshal(relayPayload{
		To:      msg.To,
		ReplyTo: m.replyTo,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Tags:    msg.Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("email relay request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("email relay returned %d: %s", resp.StatusCode, string(body))
	}

	m.logger.Debug("Relayed email", "to", msg.To, "subject", msg.Subject)

	return nil
}

// LogMailer writes messages to the log instead of sending them. Default in
// development so drips never reach real inboxes.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg protocol.EmailMessage) error {
	m.logger.Info("Email (log only, not sent)",
		"to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))

	return nil
}
