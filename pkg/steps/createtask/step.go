// Package createtask implements the create_task step: insert a follow-up
// task linked to the resolved client and job.
package createtask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/protocol"
	"github.com/fieldsuite/cadence/pkg/template"
)

func NewFactory(tasks persistence.TaskRepository) *Factory {
	return &Factory{tasks: tasks}
}

type Factory struct {
	tasks persistence.TaskRepository
}

func (*Factory) Kind() models.StepKind {
	return models.StepCreateTask
}

func (f *Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	if config == nil {
		config = map[string]any{}
	}

	title, _ := config["title"].(string)
	if title == "" {
		title = "Automation follow-up"
	}

	description, _ := config["description"].(string)

	return &Step{
		tasks:       f.tasks,
		title:       title,
		description: description,
		dueInDays:   asInt(config["due_in_days"]),
	}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title; supports {{resource.field}} tokens",
			},
			"description": map[string]any{"type": "string"},
			"due_in_days": map[string]any{"type": "integer", "minimum": 0},
		},
	}
}

type Step struct {
	tasks       persistence.TaskRepository
	title       string
	description string
	dueInDays   int
}

func (s *Step) Execute(ctx context.Context, env protocol.StepEnv, entityCtx *models.EntityContext, logger *slog.Logger) (protocol.StepResult, error) {
	task := &models.Task{
		ID:          "task-" + uuid.New().String()[:8],
		Title:       template.Render(s.title, entityCtx),
		Description: template.Render(s.description, entityCtx),
		Status:      "open",
		CreatedAt:   env.Now,
	}

	if entityCtx != nil && entityCtx.Client != nil {
		task.ClientID = entityCtx.Client.ID
	}

	if entityCtx != nil && entityCtx.Job != nil {
		task.JobID = entityCtx.Job.ID
	}

	if s.dueInDays > 0 {
		due := env.Now.Add(time.Duration(s.dueInDays) * 24 * time.Hour)
		task.DueAt = &due
	}

	err := s.tasks.Create(ctx, task)
	if err != nil {
		return protocol.StepResult{}, fmt.Errorf("failed to create task: %w", err)
	}

	logger.Info("Created task", "task_id", task.ID, "title", task.Title)

	return protocol.Continue(), nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
