package session

import (
	"context"
	"errors"
	"strings"

	natsadapter "github.com/revival-automotive/account-service/internal/adapter/nats"
	"github.com/revival-automotive/account-service/internal/auth"
	"github.com/revival-automotive/account-service/internal/entity"
	"github.com/revival-automotive/account-service/internal/mailer"
	"github.com/revival-automotive/account-service/internal/repository"
	"go.uber.org/zap"
)

// ErrIncompleteSubmission is returned when the profile-completion form is
// submitted with a required field missing.
var ErrIncompleteSubmission = errors.New("name, phone, and full address details are required")

// Outcome is the result of reconciling an authenticated identity with its
// profile document. An incomplete profile routes the user into the
// profile-completion step instead of establishing the session.
type Outcome struct {
	Profile         *entity.UserProfile
	NeedsCompletion bool
	WasCreated      bool
}

// CompletionInput carries the profile-completion form fields. All of them are
// required.
type CompletionInput struct {
	Name       string
	Phone      string
	Street     string
	Suburb     string
	City       string
	Province   string
	PostalCode string
}

// ProfileEdit carries the account-edit form fields. Empty fields keep their
// stored values.
type ProfileEdit struct {
	Name       string
	Phone      string
	Street     string
	Suburb     string
	City       string
	Province   string
	PostalCode string
}

// Reconciler merges a freshly authenticated identity with its persisted
// profile document.
type Reconciler struct {
	profiles repository.ProfileStore
	mailer   mailer.Mailer
	events   natsadapter.MessagePublisher
	logger   *zap.Logger
}

func NewReconciler(profiles repository.ProfileStore, m mailer.Mailer, events natsadapter.MessagePublisher, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		profiles: profiles,
		mailer:   m,
		events:   events,
		logger:   logger.Named("Reconciler"),
	}
}

// OnSignIn runs after any successful authentication event: password login,
// federated login, or ambient session restore. It fetches or lazily creates
// the profile document and decides whether onboarding is finished.
func (r *Reconciler) OnSignIn(ctx context.Context, ident *auth.Identity, federated bool) (*Outcome, error) {
	profile, err := r.profiles.Get(ctx, ident.ID)
	wasCreated := false
	switch {
	case err == nil:
		reconcileStored(profile)
	case errors.Is(err, repository.ErrProfileNotFound):
		profile = &entity.UserProfile{
			UID:   ident.ID,
			Email: ident.Email,
			Role:  entity.RoleCustomer,
		}
		if federated {
			profile.Name = ident.DisplayName
		}
		if err := r.profiles.Set(ctx, profile); err != nil {
			return nil, err
		}
		wasCreated = true
		r.logger.Info("Profile created on first sign-in", zap.String("uid", ident.ID), zap.Bool("federated", federated))
	default:
		return nil, err
	}

	if !profile.IsComplete() {
		return &Outcome{Profile: profile, NeedsCompletion: true, WasCreated: wasCreated}, nil
	}

	if wasCreated && federated {
		if err := r.mailer.SendWelcome(ctx, profile.Email, profile.Name); err != nil {
			r.logger.Warn("Welcome email failed, continuing", zap.String("uid", ident.ID), zap.Error(err))
		}
	}
	return &Outcome{Profile: profile, WasCreated: wasCreated}, nil
}

// Restore replays sign-in reconciliation for an established session, where
// only the identity id is known. A missing profile surfaces as an error:
// restore never carries the email needed to lazily create one.
func (r *Reconciler) Restore(ctx context.Context, uid string) (*Outcome, error) {
	profile, err := r.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	reconcileStored(profile)
	return &Outcome{Profile: profile, NeedsCompletion: !profile.IsComplete()}, nil
}

// reconcileStored normalizes a profile read back from the store. Recompute
// before the province backfill so a stored free-text address still wins when
// every structured field is absent.
func reconcileStored(profile *entity.UserProfile) {
	profile.RecomputeAddress()
	if strings.TrimSpace(profile.Province) == "" {
		profile.Province = entity.DefaultProvince
	}
}

// CompleteProfile applies the profile-completion form. The session profile is
// not considered established until this succeeds with every required field.
func (r *Reconciler) CompleteProfile(ctx context.Context, uid string, in CompletionInput) (*entity.UserProfile, error) {
	in = CompletionInput{
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Street:     strings.TrimSpace(in.Street),
		Suburb:     strings.TrimSpace(in.Suburb),
		City:       strings.TrimSpace(in.City),
		Province:   strings.TrimSpace(in.Province),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}
	for _, v := range []string{in.Name, in.Phone, in.Street, in.Suburb, in.City, in.Province, in.PostalCode} {
		if v == "" {
			return nil, ErrIncompleteSubmission
		}
	}

	profile, err := r.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	profile.Name = in.Name
	profile.Phone = in.Phone
	profile.Street = in.Street
	profile.Suburb = in.Suburb
	profile.City = in.City
	profile.Province = in.Province
	profile.PostalCode = in.PostalCode
	profile.RecomputeAddress()

	if err := r.profiles.Update(ctx, uid, repository.ProfileUpdate{
		Name:       profile.Name,
		Phone:      profile.Phone,
		Street:     profile.Street,
		Suburb:     profile.Suburb,
		City:       profile.City,
		Province:   profile.Province,
		PostalCode: profile.PostalCode,
		Address:    profile.Address,
	}); err != nil {
		return nil, err
	}

	if err := r.events.Publish(ctx, natsadapter.SubjectProfileCompleted, profileEvent(profile)); err != nil {
		r.logger.Warn("Failed to publish profile completed event", zap.String("uid", uid), zap.Error(err))
	}
	return profile, nil
}

// UpdateAccount applies the account-edit form. Unlike profile completion,
// fields left empty keep their stored values.
func (r *Reconciler) UpdateAccount(ctx context.Context, uid string, in ProfileEdit) (*entity.UserProfile, error) {
	profile, err := r.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, v string) {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			*dst = trimmed
		}
	}
	apply(&profile.Name, in.Name)
	apply(&profile.Phone, in.Phone)
	apply(&profile.Street, in.Street)
	apply(&profile.Suburb, in.Suburb)
	apply(&profile.City, in.City)
	apply(&profile.Province, in.Province)
	apply(&profile.PostalCode, in.PostalCode)
	profile.RecomputeAddress()

	if err := r.profiles.Update(ctx, uid, repository.ProfileUpdate{
		Name:       profile.Name,
		Phone:      profile.Phone,
		Street:     profile.Street,
		Suburb:     profile.Suburb,
		City:       profile.City,
		Province:   profile.Province,
		PostalCode: profile.PostalCode,
		Address:    profile.Address,
	}); err != nil {
		return nil, err
	}
	return profile, nil
}

func profileEvent(p *entity.UserProfile) map[string]string {
	return map[string]string{
		"uid":   p.UID,
		"email": p.Email,
		"name":  p.Name,
	}
}
