package models

import "time"

// Client is a customer record. Tags are mutated by add_tag/remove_tag steps
// and are treated as a set.
type Client struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports whether the tag is present.
func (c *Client) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// AddTag adds the tag if absent. Adding an existing tag is a no-op.
func (c *Client) AddTag(tag string) {
	if c.HasTag(tag) {
		return
	}

	c.Tags = append(c.Tags, tag)
}

// RemoveTag removes the tag if present. Removing an absent tag is a no-op.
func (c *Client) RemoveTag(tag string) {
	for i, t := range c.Tags {
		if t == tag {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)

			return
		}
	}
}

// Job is a scheduled service visit owned by a client.
type Job struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	TechnicianID string    `json:"technician_id,omitempty"`
	Date         string    `json:"date"`
	ServiceName  string    `json:"service_name"`
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Quote is a priced proposal owned by a client.
type Quote struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

// Invoice is a bill owned by a client.
type Invoice struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

// Technician performs jobs and can be an email recipient.
type Technician struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Task is a follow-up item created by create_task steps.
type Task struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"client_id,omitempty"`
	JobID       string     `json:"job_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CompanySettings holds the business identity exposed to templates.
type CompanySettings struct {
	Name    string `json:"name"`
	ReplyTo string `json:"reply_to"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// EmailLog is the insert-only audit sink for outbound email. DedupKey is
// runID:stepIndex and is checked before dispatch so a redelivered advance
// job cannot double-send.
type EmailLog struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	StepIndex int       `json:"step_index"`
	DedupKey  string    `json:"dedup_key"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	SentAt    time.Time `json:"sent_at"`
}
