package auth

import (
	"context"
	"errors"
)

var (
	ErrEmailInUse        = errors.New("email already in use")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrWeakPassword      = errors.New("password too weak")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongPassword     = errors.New("wrong password")
)

// Identity is an authenticated account as known to the provider.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// FederatedUser is an assertion from a third-party identity provider that has
// already been verified upstream.
type FederatedUser struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
}

// Provider is the authentication capability this service depends on. Password
// semantics follow the hosted providers this replaces: email uniqueness is
// enforced at creation, and sign-in distinguishes unknown accounts from bad
// passwords.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignInFederated(ctx context.Context, user FederatedUser) (*Identity, error)
}
