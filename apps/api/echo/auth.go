package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/core/account"
	"github.com/edecs/elearn/core/identity"
)

const contextTokenKey = "accountToken"

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"` // -> ADMIN PORTAL
}

func getAccountClaims(conf *core.Config, rec account.Record, uid string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    conf.AppName,
			Subject:   uid,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:   rec.Email,
		Role:    rec.Role,
		IsAdmin: rec.IsAdmin(),
	}
}

// authenticate checks the credentials with the identity provider, then gates
// on the role record: unknown or disabled accounts cannot log in even when
// the provider still accepts their password.
func authenticate(ctx context.Context, deps ServerDeps, email, password string) (*Claims, error) {
	session, err := deps.Provider.Authenticate(ctx, email, password)
	if err != nil {
		switch errors.Cause(err) {
		case core.ErrUserNotFound, core.ErrWrongPassword, core.ErrInvalidEmail:
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "authenticating principal")
	}

	rec, err := deps.AccountSvc.Roles().Get(ctx, identity.Key(email))
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "reading role record")
	}
	if rec.IsDisabled() {
		return nil, errAccountDisabled
	}
	return getAccountClaims(deps.Conf, rec, session.Principal.UID), nil
}

// generateToken generates a signed JWT token string representing the Claims.
func generateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
