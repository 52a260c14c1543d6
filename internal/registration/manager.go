package registration

import (
	"context"
	"errors"
	"strings"
	"sync"

	natsadapter "github.com/revival-automotive/account-service/internal/adapter/nats"
	"github.com/revival-automotive/account-service/internal/auth"
	"github.com/revival-automotive/account-service/internal/entity"
	"github.com/revival-automotive/account-service/internal/mailer"
	"github.com/revival-automotive/account-service/internal/otp"
	"github.com/revival-automotive/account-service/internal/repository"
	"github.com/revival-automotive/account-service/internal/session"
	"go.uber.org/zap"
)

// Manager is the single controller that owns registration flows and drives
// their transitions. Flows are keyed by the normalized registration email and
// live only in memory; restarting the service discards them, and the user
// registers again.
type Manager struct {
	mu    sync.Mutex
	flows map[string]*Flow

	auth       auth.Provider
	profiles   repository.ProfileStore
	mailer     mailer.Mailer
	reconciler *session.Reconciler
	events     natsadapter.MessagePublisher
	logger     *zap.Logger

	// newOTP builds the challenge service for a fresh flow. Tests swap it
	// for one with a shortened expiry.
	newOTP func(sender otp.CodeSender, logger *zap.Logger) *otp.Service
}

func NewManager(
	provider auth.Provider,
	profiles repository.ProfileStore,
	m mailer.Mailer,
	reconciler *session.Reconciler,
	events natsadapter.MessagePublisher,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		flows:      make(map[string]*Flow),
		auth:       provider,
		profiles:   profiles,
		mailer:     m,
		reconciler: reconciler,
		events:     events,
		logger:     logger.Named("RegistrationManager"),
		newOTP:     otp.NewService,
	}
}

// SubmitDetails validates the registration form, stores the pending
// registration and issues a verification code to the given email. A repeat
// submission for the same email restarts the flow, invalidating any earlier
// challenge.
func (m *Manager) SubmitDetails(ctx context.Context, in Input) error {
	pending, err := validateInput(in)
	if err != nil {
		return err
	}

	flow := &Flow{otp: m.newOTP(m.mailer, m.logger)}
	if err := flow.otp.Issue(ctx, pending.Email, pending.Name); err != nil {
		return err
	}
	flow.pending = pending
	flow.state = StateAwaitingVerification

	m.mu.Lock()
	m.flows[pending.Email] = flow
	m.mu.Unlock()

	m.logger.Info("Registration details accepted, verification code sent", zap.String("email", pending.Email))
	return nil
}

// Verify checks the submitted code and, on success, creates the
// authentication identity, persists the seeded profile, fires the welcome
// email and completes the flow. An email-already-in-use failure is treated as
// a recoverable race: the pending credentials are used to sign in and the
// result reconciled as a normal login.
func (m *Manager) Verify(ctx context.Context, email, code string) (*session.Outcome, error) {
	flow, ok := m.lookup(email)
	if !ok {
		return nil, otp.ErrNoActiveChallenge
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	if flow.state != StateAwaitingVerification {
		return nil, otp.ErrNoActiveChallenge
	}
	if err := flow.otp.Validate(email, code); err != nil {
		return nil, err
	}
	flow.state = StateCompleting
	pending := flow.pending

	ident, err := m.auth.CreateIdentity(ctx, pending.Email, pending.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailInUse) {
			// The account exists already: a previous attempt created it but
			// never finished verifying. Sign in with the just-entered
			// password and reconcile as a normal login.
			m.logger.Info("Email already registered during verification, attempting sign-in", zap.String("email", pending.Email))
			ident, signInErr := m.auth.SignIn(ctx, pending.Email, pending.Password)
			if signInErr != nil {
				flow.state = StateAwaitingVerification
				return nil, signInErr
			}
			outcome, recErr := m.reconciler.OnSignIn(ctx, ident, false)
			if recErr != nil {
				flow.state = StateAwaitingVerification
				return nil, recErr
			}
			m.finish(flow, pending.Email)
			return outcome, nil
		}
		flow.state = StateAwaitingVerification
		return nil, err
	}

	profile := &entity.UserProfile{
		UID:        ident.ID,
		Name:       pending.Name,
		Email:      pending.Email,
		Phone:      pending.Phone,
		Street:     pending.Street,
		Suburb:     pending.Suburb,
		City:       pending.City,
		Province:   pending.Province,
		PostalCode: pending.PostalCode,
		Role:       entity.RoleCustomer,
	}
	if strings.TrimSpace(profile.Province) == "" {
		profile.Province = entity.DefaultProvince
	}
	profile.RecomputeAddress()

	if err := m.profiles.Set(ctx, profile); err != nil {
		// The identity exists now; retrying verification self-heals through
		// the sign-in path above.
		flow.state = StateAwaitingVerification
		return nil, err
	}

	if err := m.mailer.SendWelcome(ctx, profile.Email, profile.Name); err != nil {
		m.logger.Warn("Welcome email failed, registration still succeeds", zap.String("email", profile.Email), zap.Error(err))
	}
	if err := m.events.Publish(ctx, natsadapter.SubjectAccountRegistered, map[string]string{
		"uid":   profile.UID,
		"email": profile.Email,
		"name":  profile.Name,
	}); err != nil {
		m.logger.Warn("Failed to publish account registered event", zap.String("uid", profile.UID), zap.Error(err))
	}

	m.finish(flow, pending.Email)
	m.logger.Info("Registration completed", zap.String("uid", profile.UID))
	return &session.Outcome{Profile: profile, WasCreated: true}, nil
}

// Back discards the pending registration and its challenge and returns the
// flow to collecting details.
func (m *Manager) Back(email string) error {
	flow, ok := m.lookup(email)
	if !ok {
		return otp.ErrNoActiveChallenge
	}
	flow.mu.Lock()
	defer flow.mu.Unlock()
	flow.reset()
	return nil
}

// ResendCode issues a fresh challenge for a flow awaiting verification,
// invalidating the previous code.
func (m *Manager) ResendCode(ctx context.Context, email string) error {
	flow, ok := m.lookup(email)
	if !ok {
		return otp.ErrNoActiveChallenge
	}
	flow.mu.Lock()
	defer flow.mu.Unlock()
	if flow.state != StateAwaitingVerification {
		return otp.ErrNoActiveChallenge
	}
	return flow.otp.Issue(ctx, flow.pending.Email, flow.pending.Name)
}

// FlowState reports the state of the flow for email, if one exists.
func (m *Manager) FlowState(email string) (State, bool) {
	flow, ok := m.lookup(email)
	if !ok {
		return StateCollectingDetails, false
	}
	return flow.State(), true
}

// finish consumes the challenge, discards the transient data and removes the
// completed flow. Caller holds flow.mu.
func (m *Manager) finish(flow *Flow, email string) {
	flow.otp.Consume()
	flow.pending = nil
	flow.state = StateDone

	m.mu.Lock()
	delete(m.flows, email)
	m.mu.Unlock()
}

func (m *Manager) lookup(email string) (*Flow, bool) {
	key := strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[key]
	return flow, ok
}
