package core

import (
	"context"
	"errors"
)

var (
	// account creation
	ErrEmailInUse   = errors.New("a principal with this email is already registered")
	ErrWeakPassword = errors.New("password is too weak")
	ErrInvalidEmail = errors.New("invalid email address")

	// authentication
	ErrWrongPassword = errors.New("wrong password")
	ErrUserNotFound  = errors.New("no user found with this email")

	// password reset
	ErrMissingEmail = errors.New("email address is missing")
)

type (
	// Principal is an authentication identity owned by the external
	// Identity Provider. The provider stores credentials; we never do.
	Principal struct {
		UID   string
		Email string
	}

	// Session is a live authenticated session returned by the provider.
	Session struct {
		Principal
		Token string
	}

	// IdentityProvider is the external authentication collaborator.
	// Implementations map provider-specific failure codes onto the
	// sentinel errors above; anything else passes through as-is.
	IdentityProvider interface {
		CreatePrincipal(ctx context.Context, email, password string) (Principal, error)
		Authenticate(ctx context.Context, email, password string) (Session, error)
		SendPasswordReset(ctx context.Context, email string) error
	}
)
