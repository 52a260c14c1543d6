package session

import (
	"context"
	"errors"
	"testing"

	natsadapter "github.com/revival-automotive/account-service/internal/adapter/nats"
	"github.com/revival-automotive/account-service/internal/auth"
	"github.com/revival-automotive/account-service/internal/entity"
	"github.com/revival-automotive/account-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProfileStore struct{ mock.Mock }

func (m *MockProfileStore) Get(ctx context.Context, uid string) (*entity.UserProfile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserProfile), args.Error(1)
}
func (m *MockProfileStore) Set(ctx context.Context, profile *entity.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}
func (m *MockProfileStore) Update(ctx context.Context, uid string, update repository.ProfileUpdate) error {
	args := m.Called(ctx, uid, update)
	return args.Error(0)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	args := m.Called(ctx, toEmail, toName, code)
	return args.Error(0)
}
func (m *MockMailer) SendWelcome(ctx context.Context, toEmail, toName string) error {
	args := m.Called(ctx, toEmail, toName)
	return args.Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}

type reconcilerFixture struct {
	profiles   *MockProfileStore
	mailer     *MockMailer
	events     *MockPublisher
	reconciler *Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	logger, _ := zap.NewDevelopment()
	profiles := new(MockProfileStore)
	m := new(MockMailer)
	events := new(MockPublisher)
	return &reconcilerFixture{
		profiles:   profiles,
		mailer:     m,
		events:     events,
		reconciler: NewReconciler(profiles, m, events, logger),
	}
}

func storedProfile() *entity.UserProfile {
	return &entity.UserProfile{
		UID:        "uid-1",
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Phone:      "0821234567",
		Street:     "12 Main Rd",
		Suburb:     "Claremont",
		City:       "Cape Town",
		Province:   "Western Cape",
		PostalCode: "7708",
		Role:       entity.RoleCustomer,
	}
}

func TestReconciler_OnSignIn_ExistingCompleteProfile(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	f.profiles.On("Get", ctx, "uid-1").Return(storedProfile(), nil).Once()

	outcome, err := f.reconciler.OnSignIn(ctx, &auth.Identity{ID: "uid-1", Email: "jane@example.com"}, false)
	require.NoError(t, err)
	assert.False(t, outcome.NeedsCompletion)
	assert.False(t, outcome.WasCreated)
	assert.Equal(t, "12 Main Rd, Claremont, Cape Town, Western Cape, 7708", outcome.Profile.Address)

	// No welcome mail for an already-known account.
	f.mailer.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_OnSignIn_BackfillsProvince(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	p := storedProfile()
	p.Province = ""
	f.profiles.On("Get", ctx, "uid-1").Return(p, nil).Once()

	outcome, err := f.reconciler.OnSignIn(ctx, &auth.Identity{ID: "uid-1"}, false)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultProvince, outcome.Profile.Province)
	// The backfill happens after the address was recomputed, so the
	// displayed address reflects what was actually stored.
	assert.Equal(t, "12 Main Rd, Claremont, Cape Town, 7708", outcome.Profile.Address)
}

func TestReconciler_OnSignIn_FreeTextAddressSurvives(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	p := &entity.UserProfile{
		UID:     "uid-1",
		Email:   "jane@example.com",
		Address: "Unit 4, The Old Mill, Durbanville",
		Role:    entity.RoleCustomer,
	}
	f.profiles.On("Get", ctx, "uid-1").Return(p, nil).Once()

	outcome, err := f.reconciler.OnSignIn(ctx, &auth.Identity{ID: "uid-1"}, false)
	require.NoError(t, err)
	assert.True(t, outcome.NeedsCompletion)
	assert.Equal(t, "Unit 4, The Old Mill, Durbanville", outcome.Profile.Address)
}

func TestReconciler_OnSignIn_CreatesMissingProfile(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	f.profiles.On("Get", ctx, "uid-2").Return(nil, repository.ErrProfileNotFound).Once()
	f.profiles.On("Set", ctx, mock.AnythingOfType("*entity.UserProfile")).Return(nil).Once()

	ident := &auth.Identity{ID: "uid-2", Email: "new@example.com", DisplayName: "New User"}
	outcome, err := f.reconciler.OnSignIn(ctx, ident, true)
	require.NoError(t, err)
	assert.True(t, outcome.WasCreated)
	assert.True(t, outcome.NeedsCompletion)
	assert.Equal(t, "uid-2", outcome.Profile.UID)
	assert.Equal(t, "new@example.com", outcome.Profile.Email)
	assert.Equal(t, "New User", outcome.Profile.Name)
	assert.Equal(t, entity.RoleCustomer, outcome.Profile.Role)
	f.profiles.AssertExpectations(t)
}

func TestReconciler_OnSignIn_PasswordLoginDoesNotCopyDisplayName(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	f.profiles.On("Get", ctx, "uid-2").Return(nil, repository.ErrProfileNotFound).Once()
	f.profiles.On("Set", ctx, mock.AnythingOfType("*entity.UserProfile")).Return(nil).Once()

	ident := &auth.Identity{ID: "uid-2", Email: "new@example.com", DisplayName: "New User"}
	outcome, err := f.reconciler.OnSignIn(ctx, ident, false)
	require.NoError(t, err)
	assert.Empty(t, outcome.Profile.Name)
}

func TestReconciler_OnSignIn_StoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	storeErr := errors.New("mongo down")
	f.profiles.On("Get", ctx, "uid-1").Return(nil, storeErr).Once()

	_, err := f.reconciler.OnSignIn(ctx, &auth.Identity{ID: "uid-1"}, false)
	assert.ErrorIs(t, err, storeErr)
}

func TestReconciler_Restore(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	f.profiles.On("Get", ctx, "uid-1").Return(storedProfile(), nil).Once()

	outcome, err := f.reconciler.Restore(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, outcome.NeedsCompletion)
	assert.False(t, outcome.WasCreated)
	assert.Equal(t, "12 Main Rd, Claremont, Cape Town, Western Cape, 7708", outcome.Profile.Address)
}

func TestReconciler_Restore_MatchesSignInForMissingProvince(t *testing.T) {
	ctx := context.Background()

	// Both paths reconcile identically: the restored session must not
	// re-route an onboarded user into profile completion.
	restoreFixture := newReconcilerFixture()
	p := storedProfile()
	p.Province = ""
	restoreFixture.profiles.On("Get", ctx, "uid-1").Return(p, nil).Once()
	restored, err := restoreFixture.reconciler.Restore(ctx, "uid-1")
	require.NoError(t, err)

	signInFixture := newReconcilerFixture()
	p2 := storedProfile()
	p2.Province = ""
	signInFixture.profiles.On("Get", ctx, "uid-1").Return(p2, nil).Once()
	signedIn, err := signInFixture.reconciler.OnSignIn(ctx, &auth.Identity{ID: "uid-1"}, false)
	require.NoError(t, err)

	assert.Equal(t, entity.DefaultProvince, restored.Profile.Province)
	assert.Equal(t, signedIn.Profile.Province, restored.Profile.Province)
	assert.Equal(t, signedIn.NeedsCompletion, restored.NeedsCompletion)
	assert.False(t, restored.NeedsCompletion)
}

func TestReconciler_Restore_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	f.profiles.On("Get", ctx, "uid-9").Return(nil, repository.ErrProfileNotFound).Once()

	_, err := f.reconciler.Restore(ctx, "uid-9")
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
	f.profiles.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestReconciler_CompleteProfile(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()

	p := &entity.UserProfile{UID: "uid-2", Email: "new@example.com", Name: "New User", Role: entity.RoleCustomer}
	f.profiles.On("Get", ctx, "uid-2").Return(p, nil).Once()
	f.profiles.On("Update", ctx, "uid-2", mock.AnythingOfType("repository.ProfileUpdate")).Return(nil).Once()
	f.events.On("Publish", ctx, natsadapter.SubjectProfileCompleted, mock.Anything).Return(nil).Once()

	profile, err := f.reconciler.CompleteProfile(ctx, "uid-2", CompletionInput{
		Name:       "New User",
		Phone:      "0821234567",
		Street:     "12 Main Rd",
		Suburb:     "Claremont",
		City:       "Cape Town",
		Province:   "Western Cape",
		PostalCode: "7708",
	})
	require.NoError(t, err)
	assert.True(t, profile.IsComplete())
	assert.Equal(t, "12 Main Rd, Claremont, Cape Town, Western Cape, 7708", profile.Address)
	f.events.AssertExpectations(t)
}

func TestReconciler_CompleteProfile_MissingField(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()

	_, err := f.reconciler.CompleteProfile(ctx, "uid-2", CompletionInput{
		Name:  "New User",
		Phone: "0821234567",
		// Address fields missing.
	})
	assert.ErrorIs(t, err, ErrIncompleteSubmission)
	f.profiles.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_CompleteProfile_EventFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()

	p := &entity.UserProfile{UID: "uid-2", Email: "new@example.com", Role: entity.RoleCustomer}
	f.profiles.On("Get", ctx, "uid-2").Return(p, nil).Once()
	f.profiles.On("Update", ctx, "uid-2", mock.Anything).Return(nil).Once()
	f.events.On("Publish", ctx, natsadapter.SubjectProfileCompleted, mock.Anything).Return(errors.New("nats down")).Once()

	_, err := f.reconciler.CompleteProfile(ctx, "uid-2", CompletionInput{
		Name:       "New User",
		Phone:      "0821234567",
		Street:     "12 Main Rd",
		Suburb:     "Claremont",
		City:       "Cape Town",
		Province:   "Western Cape",
		PostalCode: "7708",
	})
	assert.NoError(t, err)
}

func TestReconciler_UpdateAccount(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()

	f.profiles.On("Get", ctx, "uid-1").Return(storedProfile(), nil).Once()
	f.profiles.On("Update", ctx, "uid-1", mock.AnythingOfType("repository.ProfileUpdate")).Return(nil).Once()

	profile, err := f.reconciler.UpdateAccount(ctx, "uid-1", ProfileEdit{
		Street: "99 Church St",
		Phone:  "0839876543",
	})
	require.NoError(t, err)
	// Edited fields change, the rest keep their stored values.
	assert.Equal(t, "99 Church St", profile.Street)
	assert.Equal(t, "0839876543", profile.Phone)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Equal(t, "Claremont", profile.Suburb)
	assert.Equal(t, "99 Church St, Claremont, Cape Town, Western Cape, 7708", profile.Address)
}

func TestReconciler_UpdateAccount_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture()
	f.profiles.On("Get", ctx, "uid-9").Return(nil, repository.ErrProfileNotFound).Once()

	_, err := f.reconciler.UpdateAccount(ctx, "uid-9", ProfileEdit{Name: "X"})
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
}
