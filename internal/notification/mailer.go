package notification

import "context"

// Mailer delivers a notification by email. pkg/email.SMTPSender satisfies it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NopMailer drops every message.
type NopMailer struct{}

func (NopMailer) Send(context.Context, string, string, string) error { return nil }
