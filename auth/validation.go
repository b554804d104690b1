package auth

import (
	"strings"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

// Input checks run before any network call. Only presence is checked here,
// format and password policy belong to the backend.

func validateEmail(op, email string) error {
	if strings.TrimSpace(email) == "" {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[%s] email is required", op)
	}
	return nil
}

func validateCredentials(op, email, password string) error {
	if err := validateEmail(op, email); err != nil {
		return err
	}
	if password == "" {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[%s] password is required", op)
	}
	return nil
}

func validateRegistration(r users.Registration) error {
	return validateCredentials("Service.Register", r.Email, r.Password)
}

func validateResetConfirmation(c PasswordResetConfirmation) error {
	switch {
	case c.UID == "":
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.ConfirmPasswordReset] uid is required")
	case c.Token == "":
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.ConfirmPasswordReset] token is required")
	case c.Password == "":
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.ConfirmPasswordReset] password is required")
	}
	return nil
}

func validateProfileUpdate(p users.ProfileUpdate) error {
	if p.Empty() {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.UpdateProfile] nothing to update")
	}
	if p.Email != nil {
		return validateEmail("Service.UpdateProfile", *p.Email)
	}
	return nil
}
