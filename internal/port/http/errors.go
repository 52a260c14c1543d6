package http

import (
	"errors"
	"net/http"

	"github.com/revival-automotive/account-service/internal/auth"
	"github.com/revival-automotive/account-service/internal/otp"
	"github.com/revival-automotive/account-service/internal/registration"
	"github.com/revival-automotive/account-service/internal/repository"
	"github.com/revival-automotive/account-service/internal/session"
)

// friendlyError is one row of the fixed lookup table mapping provider and
// challenge errors to user-facing feedback.
type friendlyError struct {
	err     error
	status  int
	message string
}

var friendlyErrors = []friendlyError{
	{auth.ErrEmailInUse, http.StatusConflict, "That email is already registered."},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "Please enter a valid email address."},
	{auth.ErrInvalidCredential, http.StatusUnauthorized, "Invalid login details. Please try again."},
	{auth.ErrWrongPassword, http.StatusUnauthorized, "Incorrect password. Please try again."},
	{auth.ErrUserNotFound, http.StatusNotFound, "No account found with that email."},
	{auth.ErrWeakPassword, http.StatusBadRequest, "Password should be at least 6 characters."},
	{otp.ErrNoActiveChallenge, http.StatusBadRequest, "No verification in progress. Please register again."},
	{otp.ErrEmailMismatch, http.StatusBadRequest, "This code was sent to a different email address."},
	{otp.ErrExpired, http.StatusBadRequest, "That code has expired. Please request a new one."},
	{otp.ErrIncompleteCode, http.StatusBadRequest, "Please enter the full 6-digit code."},
	{otp.ErrIncorrectCode, http.StatusBadRequest, "Incorrect code. Please try again."},
	{session.ErrIncompleteSubmission, http.StatusBadRequest, "Name, phone, and full address details are required."},
	{repository.ErrProfileNotFound, http.StatusNotFound, "Could not load your account. Please try again."},
}

const genericErrorMessage = "Something went wrong. Please try again."

// lookupFriendly maps an error to its status and user-facing message,
// defaulting to the generic message for anything unmapped.
func lookupFriendly(err error) (int, string) {
	var validation *registration.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, validation.Message
	}
	for _, fe := range friendlyErrors {
		if errors.Is(err, fe.err) {
			return fe.status, fe.message
		}
	}
	return http.StatusInternalServerError, genericErrorMessage
}
