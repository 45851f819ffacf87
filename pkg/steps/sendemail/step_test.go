package sendemail

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/protocol"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

type fakeMailer struct {
	sent []protocol.EmailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg protocol.EmailMessage) error {
	if m.err != nil {
		return m.err
	}

	m.sent = append(m.sent, msg)

	return nil
}

type fakeEmailLog struct {
	entries map[string]*models.EmailLog
}

func newFakeEmailLog() *fakeEmailLog {
	return &fakeEmailLog{entries: make(map[string]*models.EmailLog)}
}

func (l *fakeEmailLog) Create(_ context.Context, entry *models.EmailLog) error {
	l.entries[entry.DedupKey] = entry

	return nil
}

func (l *fakeEmailLog) FindByDedupKey(_ context.Context, key string) (*models.EmailLog, error) {
	entry, ok := l.entries[key]
	if !ok {
		return nil, persistence.ErrEmailLogNotFound
	}

	return entry, nil
}

func clientContext() *models.EntityContext {
	return &models.EntityContext{
		Client:  &models.Client{ID: "client-1", FirstName: "Sam", Email: "sam@example.com"},
		Company: &models.CompanySettings{Name: "Brightside"},
	}
}

func TestSendEmailToClient(t *testing.T) {
	mailer := &fakeMailer{}
	emailLog := newFakeEmailLog()
	factory := NewFactory(mailer, emailLog)

	step, err := factory.Create(map[string]any{
		"to":      "client",
		"subject": "Hi {{client.first_name}}",
		"html":    "<p>From {{company.name}}</p>",
	})
	require.NoError(t, err)

	env := protocol.StepEnv{RunID: "run-1", StepIndex: 0, Now: time.Now().UTC()}

	result, err := step.Execute(context.Background(), env, clientContext(), testLogger)
	require.NoError(t, err)

	assert.Equal(t, protocol.ActionContinue, result.Action)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "sam@example.com", mailer.sent[0].To)
	assert.Equal(t, "Hi Sam", mailer.sent[0].Subject)
	assert.Equal(t, "<p>From Brightside</p>", mailer.sent[0].HTML)

	entry, err := emailLog.FindByDedupKey(context.Background(), "run-1:0")
	require.NoError(t, err)
	assert.Equal(t, "sent", entry.Status)
}

func TestSendEmailDedupGuard(t *testing.T) {
	mailer := &fakeMailer{}
	emailLog := newFakeEmailLog()
	factory := NewFactory(mailer, emailLog)

	step, err := factory.Create(map[string]any{"subject": "Checking in"})
	require.NoError(t, err)

	env := protocol.StepEnv{RunID: "run-1", StepIndex: 2, Now: time.Now().UTC()}
	entityCtx := clientContext()

	_, err = step.Execute(context.Background(), env, entityCtx, testLogger)
	require.NoError(t, err)

	// Redelivered job for the same run position must not send again.
	result, err := step.Execute(context.Background(), env, entityCtx, testLogger)
	require.NoError(t, err)

	assert.Equal(t, protocol.ActionContinue, result.Action)
	assert.Len(t, mailer.sent, 1)
}

func TestSendEmailMissingRecipient(t *testing.T) {
	factory := NewFactory(&fakeMailer{}, newFakeEmailLog())

	tests := []struct {
		name   string
		config map[string]any
		ctx    *models.EntityContext
	}{
		{
			name:   "client mode without client",
			config: map[string]any{"to": "client", "subject": "x"},
			ctx:    &models.EntityContext{},
		},
		{
			name:   "technician mode without technician",
			config: map[string]any{"to": "technician", "subject": "x"},
			ctx:    clientContext(),
		},
		{
			name:   "custom mode without an address",
			config: map[string]any{"to": "somebody", "subject": "x"},
			ctx:    clientContext(),
		},
		{
			name:   "client with empty email",
			config: map[string]any{"subject": "x"},
			ctx:    &models.EntityContext{Client: &models.Client{ID: "client-2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := factory.Create(tt.config)
			require.NoError(t, err)

			_, err = step.Execute(context.Background(), protocol.StepEnv{RunID: "run-9"}, tt.ctx, testLogger)
			assert.ErrorIs(t, err, ErrMissingRecipient)
		})
	}
}

func TestSendEmailCustomAddress(t *testing.T) {
	mailer := &fakeMailer{}
	factory := NewFactory(mailer, newFakeEmailLog())

	step, err := factory.Create(map[string]any{
		"to":      "ops@brightside.example",
		"subject": "New lead",
	})
	require.NoError(t, err)

	_, err = step.Execute(context.Background(), protocol.StepEnv{RunID: "run-3"}, clientContext(), testLogger)
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ops@brightside.example", mailer.sent[0].To)
}

func TestSendEmailTechnicianRecipient(t *testing.T) {
	mailer := &fakeMailer{}
	factory := NewFactory(mailer, newFakeEmailLog())

	step, err := factory.Create(map[string]any{
		"to":      "technician",
		"subject": "Job update for {{job.service_name}}",
	})
	require.NoError(t, err)

	entityCtx := &models.EntityContext{
		Job:        &models.Job{ID: "job-1", ServiceName: "Window Washing"},
		Technician: &models.Technician{ID: "tech-1", Email: "tech@brightside.example"},
	}

	_, err = step.Execute(context.Background(), protocol.StepEnv{RunID: "run-4"}, entityCtx, testLogger)
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "tech@brightside.example", mailer.sent[0].To)
	assert.Equal(t, "Job update for Window Washing", mailer.sent[0].Subject)
}
