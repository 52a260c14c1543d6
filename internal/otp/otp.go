package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoActiveChallenge = errors.New("no active verification code")
	ErrEmailMismatch     = errors.New("verification code was issued for a different email")
	ErrExpired           = errors.New("verification code has expired")
	ErrIncompleteCode    = errors.New("verification code must be 6 digits")
	ErrIncorrectCode     = errors.New("incorrect verification code")
)

const (
	defaultExpiry = 10 * time.Minute
	codeLength    = 6

	codeMin = 100000
	codeMax = 999999
)

// Challenge is a one-time passcode issued to confirm control of an email
// address. At most one challenge is live per Service; issuing a new one
// replaces it.
type Challenge struct {
	Code        string
	TargetEmail string
	ExpiresAt   time.Time
	Consumed    bool
}

// CodeSender delivers a verification code to the recipient.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, toEmail, toName, code string) error
}

// Service issues and validates one-time passcodes. The live challenge is
// process-local; it is not persisted or shared.
type Service struct {
	mu      sync.Mutex
	sender  CodeSender
	expiry  time.Duration
	now     func() time.Time
	logger  *zap.Logger
	current *Challenge
}

func NewService(sender CodeSender, logger *zap.Logger) *Service {
	return NewServiceWithExpiry(sender, logger, defaultExpiry)
}

func NewServiceWithExpiry(sender CodeSender, logger *zap.Logger, expiry time.Duration) *Service {
	return &Service{
		sender: sender,
		expiry: expiry,
		now:    time.Now,
		logger: logger.Named("OTPService"),
	}
}

// Generate returns a uniformly random 6-digit numeric code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// Issue creates a new challenge for email, replacing any prior one, and
// triggers delivery. The email is trimmed and lowercased before it becomes
// the challenge target. A delivery failure discards the challenge so the
// caller can retry from a clean slate.
func (s *Service) Issue(ctx context.Context, email, name string) error {
	code, err := Generate()
	if err != nil {
		return err
	}

	target := strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	s.current = &Challenge{
		Code:        code,
		TargetEmail: target,
		ExpiresAt:   s.now().Add(s.expiry),
	}
	s.mu.Unlock()

	if err := s.sender.SendVerificationCode(ctx, target, name, code); err != nil {
		s.logger.Error("Failed to deliver verification code", zap.String("email", target), zap.Error(err))
		s.Reset()
		return err
	}
	s.logger.Info("Verification code issued", zap.String("email", target))
	return nil
}

// Validate checks a submitted email and code against the live challenge.
// Success does not consume the challenge; the caller consumes it once the
// work guarded by the code has completed.
func (s *Service) Validate(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.Consumed {
		return ErrNoActiveChallenge
	}
	if strings.ToLower(strings.TrimSpace(email)) != s.current.TargetEmail {
		return ErrEmailMismatch
	}
	if s.now().After(s.current.ExpiresAt) {
		return ErrExpired
	}
	if len(code) != codeLength {
		return ErrIncompleteCode
	}
	if code != s.current.Code {
		return ErrIncorrectCode
	}
	return nil
}

// Consume marks the live challenge as used up.
func (s *Service) Consume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Consumed = true
	}
}

// Reset discards the live challenge, if any.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Active reports whether an unconsumed challenge is live.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.current.Consumed
}
