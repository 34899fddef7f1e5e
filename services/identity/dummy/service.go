package dummyauth

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/edecs/elearn/core"
)

// Service is an in-memory core.IdentityProvider for DEV mode and tests.
type Service struct {
	mu         sync.Mutex
	principals map[string]principal // email -> principal
	// Resets records every password-reset request, newest last.
	resets []string
}

type principal struct {
	uid      string
	password string
}

var _ core.IdentityProvider = (*Service)(nil)

func NewService() *Service {
	return &Service{principals: make(map[string]principal)}
}

func (svc *Service) CreatePrincipal(ctx context.Context, email, password string) (core.Principal, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.principals[email]; ok {
		return core.Principal{}, core.ErrEmailInUse
	}
	if len(password) < 6 {
		return core.Principal{}, core.ErrWeakPassword
	}
	p := principal{uid: uuid.New().String(), password: password}
	svc.principals[email] = p
	return core.Principal{UID: p.uid, Email: email}, nil
}

func (svc *Service) Authenticate(ctx context.Context, email, password string) (core.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	p, ok := svc.principals[email]
	if !ok {
		return core.Session{}, core.ErrUserNotFound
	}
	if p.password != password {
		return core.Session{}, core.ErrWrongPassword
	}
	return core.Session{
		Principal: core.Principal{UID: p.uid, Email: email},
		Token:     uuid.New().String(),
	}, nil
}

func (svc *Service) SendPasswordReset(ctx context.Context, email string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if email == "" {
		return core.ErrMissingEmail
	}
	if _, ok := svc.principals[email]; !ok {
		return core.ErrUserNotFound
	}
	svc.resets = append(svc.resets, email)
	return nil
}

// Resets returns the emails password resets were requested for.
func (svc *Service) Resets() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]string(nil), svc.resets...)
}
