package protocol

import "context"

// EmailMessage is the outbound payload handed to the email capability.
type EmailMessage struct {
	To      string   `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Tags    []string `json:"tags,omitempty"`
}

// Mailer is the external email-sending capability. The engine never speaks
// SMTP or a provider API itself.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}
