package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPMailerService implements the Mailer interface over SMTP. It is the
// fallback for deployments without a MailerSend key.
type SMTPMailerService struct {
	from       string
	senderName string
	d          *gomail.Dialer
	logger     *zap.Logger
}

// NewSMTPMailerService creates a new SMTPMailerService.
func NewSMTPMailerService(host string, port int, username, password, fromEmail, senderName string, logger *zap.Logger) (*SMTPMailerService, error) {
	if host == "" || port == 0 || fromEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}

	dialer := gomail.NewDialer(host, port, username, password)
	dialer.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}

	return &SMTPMailerService{
		from:       fromEmail,
		senderName: senderName,
		d:          dialer,
		logger:     logger.Named("SMTPMailerService"),
	}, nil
}

func (s *SMTPMailerService) SendVerificationCode(ctx context.Context, toEmailAddr, toName, code string) error {
	if toName == "" {
		toName = "there"
	}
	subject := "Your Revival Automotive verification code"
	htmlBody := fmt.Sprintf(`<p>Hello %s,</p>
                             <p>Your verification code is: <b>%s</b></p>
                             <p>This code will expire in 10 minutes.</p>
                             <p>If you did not request this, please ignore this email.</p>`, toName, code)
	textBody := fmt.Sprintf(`Hello %s,
                           Your verification code is: %s
                           This code will expire in 10 minutes.
                           If you did not request this, please ignore this email.`, toName, code)

	return s.send(ctx, toEmailAddr, subject, htmlBody, textBody)
}

func (s *SMTPMailerService) SendWelcome(ctx context.Context, toEmailAddr, toName string) error {
	if toName == "" {
		toName = "there"
	}
	subject := "Welcome to Revival Automotive"
	htmlBody := fmt.Sprintf(`<p>Hello %s,</p>
                             <p>Your account is ready. Sign in any time to manage your bookings.</p>`, toName)
	textBody := fmt.Sprintf(`Hello %s,
                           Your account is ready. Sign in any time to manage your bookings.`, toName)

	return s.send(ctx, toEmailAddr, subject, htmlBody, textBody)
}

func (s *SMTPMailerService) send(ctx context.Context, to, subject, bodyHTML, bodyText string) error {
	s.logger.Info("Attempting to send email via SMTP", zap.String("toEmail", to))

	m := gomail.NewMessage()
	if s.senderName != "" {
		m.SetHeader("From", m.FormatAddress(s.from, s.senderName))
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", bodyHTML)
	m.AddAlternative("text/plain", bodyText)

	// gomail does not take a context; honor cancellation before dialing.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := s.d.DialAndSend(m); err != nil {
		s.logger.Error("Failed to send email via SMTP", zap.String("toEmail", to), zap.Error(err))
		return fmt.Errorf("smtp send failed: %w", err)
	}

	s.logger.Info("Email sent via SMTP", zap.String("toEmail", to))
	return nil
}
