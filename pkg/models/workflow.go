// Package models defines the core domain models for the automation engine.
package models

import "time"

// TriggerType identifies the business event that starts a run.
type TriggerType string

const (
	TriggerClientCreated TriggerType = "client_created"
	TriggerJobScheduled  TriggerType = "job_scheduled"
	TriggerJobCompleted  TriggerType = "job_completed"
	TriggerQuoteSent     TriggerType = "quote_sent"
	TriggerQuoteAccepted TriggerType = "quote_accepted"
	TriggerInvoiceSent   TriggerType = "invoice_sent"
	TriggerInvoicePaid   TriggerType = "invoice_paid"
)

// StepKind identifies the side effect a step performs.
type StepKind string

const (
	StepSendEmail          StepKind = "send_email"
	StepSendSMS            StepKind = "send_sms"
	StepDelay              StepKind = "delay"
	StepWaitUntil          StepKind = "wait_until"
	StepAddTag             StepKind = "add_tag"
	StepRemoveTag          StepKind = "remove_tag"
	StepCreateTask         StepKind = "create_task"
	StepUpdateEntityStatus StepKind = "update_entity_status"
)

// Step is one unit of work in a workflow definition. Conditions only gate
// whether the step executes; they never reroute execution.
type Step struct {
	ID         string          `json:"id"         validate:"required"`
	Kind       StepKind        `json:"kind"       validate:"required"`
	Config     map[string]any  `json:"config"`
	Conditions *ConditionGroup `json:"conditions,omitempty"`
}

// WorkflowDefinition is the authored configuration a run executes against.
// The steps list is the only execution order.
type WorkflowDefinition struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"           validate:"required,min=3"`
	TriggerType   TriggerType     `json:"trigger_type"   validate:"required"`
	TriggerFilter *ConditionGroup `json:"trigger_filter,omitempty"`
	Steps         []Step          `json:"steps"`
	Enabled       bool            `json:"enabled"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
