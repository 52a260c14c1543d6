package mailer

import "context"

// Mailer defines the interface for sending transactional emails. Two
// templates are used: a verification-code email during registration and a
// welcome email once onboarding completes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, toEmail, toName, code string) error
	SendWelcome(ctx context.Context, toEmail, toName string) error
}
