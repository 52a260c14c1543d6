package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const mailerSendAPIURL = "https://api.mailersend.com/v1/email"

// MailerSendService implements the Mailer interface using MailerSend's
// templated email API.
type MailerSendService struct {
	apiKey            string
	fromEmail         string
	fromName          string
	welcomeTemplateID string
	otpTemplateID     string
	client            *http.Client
	logger            *zap.Logger
}

// NewMailerSendService creates a new MailerSendService. Template IDs may be
// empty, in which case the inline subject and body are used as-is.
func NewMailerSendService(apiKey, fromEmail, fromName, welcomeTemplateID, otpTemplateID string, logger *zap.Logger) *MailerSendService {
	return &MailerSendService{
		apiKey:            apiKey,
		fromEmail:         fromEmail,
		fromName:          fromName,
		welcomeTemplateID: welcomeTemplateID,
		otpTemplateID:     otpTemplateID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("MailerSendService"),
	}
}

type mailerSendRequest struct {
	From            fromEmail              `json:"from"`
	To              []toEmail              `json:"to"`
	Subject         string                 `json:"subject"`
	Text            string                 `json:"text,omitempty"`
	HTML            string                 `json:"html,omitempty"`
	TemplateID      string                 `json:"template_id,omitempty"`
	Personalization []personalizationEntry `json:"personalization,omitempty"`
}

type fromEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type toEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalizationEntry struct {
	Email string            `json:"email"`
	Data  map[string]string `json:"data"`
}

// SendVerificationCode sends the OTP-code email.
func (s *MailerSendService) SendVerificationCode(ctx context.Context, toEmailAddr, toName, code string) error {
	s.logger.Info("Attempting to send verification email", zap.String("toEmail", toEmailAddr))

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

	return s.send(ctx, mailerSendRequest{
		From:       fromEmail{Email: s.fromEmail, Name: s.fromName},
		To:         []toEmail{{Email: toEmailAddr, Name: toName}},
		Subject:    subject,
		Text:       textBody,
		HTML:       htmlBody,
		TemplateID: s.otpTemplateID,
		Personalization: []personalizationEntry{
			{
				Email: toEmailAddr,
				Data: map[string]string{
					"name":     toName,
					"otp_code": code,
				},
			},
		},
	})
}

// SendWelcome sends the welcome email.
func (s *MailerSendService) SendWelcome(ctx context.Context, toEmailAddr, toName string) error {
	s.logger.Info("Attempting to send welcome email", zap.String("toEmail", toEmailAddr))

	if toName == "" {
		toName = "there"
	}
	subject := "Welcome to Revival Automotive"
	htmlBody := fmt.Sprintf(`<p>Hello %s,</p>
                             <p>Your account is ready. Sign in any time to manage your bookings.</p>`, toName)
	textBody := fmt.Sprintf(`Hello %s,
                           Your account is ready. Sign in any time to manage your bookings.`, toName)

	return s.send(ctx, mailerSendRequest{
		From:       fromEmail{Email: s.fromEmail, Name: s.fromName},
		To:         []toEmail{{Email: toEmailAddr, Name: toName}},
		Subject:    subject,
		Text:       textBody,
		HTML:       htmlBody,
		TemplateID: s.welcomeTemplateID,
		Personalization: []personalizationEntry{
			{
				Email: toEmailAddr,
				Data:  map[string]string{"name": toName},
			},
		},
	})
}

func (s *MailerSendService) send(ctx context.Context, requestPayload mailerSendRequest) error {
	payloadBytes, err := json.Marshal(requestPayload)
	if err != nil {
		s.logger.Error("Failed to marshal MailerSend request payload", zap.Error(err))
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mailerSendAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		s.logger.Error("Failed to create MailerSend HTTP request", zap.Error(err))
		return fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to send request to MailerSend", zap.Error(err))
		return fmt.Errorf("failed to send request to MailerSend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		s.logger.Error("MailerSend API request failed", zap.Int("statusCode", resp.StatusCode))
		return fmt.Errorf("MailerSend API request failed with status code %d", resp.StatusCode)
	}

	s.logger.Info("Email sent via MailerSend", zap.String("messageID", resp.Header.Get("X-Message-Id")))
	return nil
}
