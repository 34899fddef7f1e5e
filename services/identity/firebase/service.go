package firebaseauth

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
)

var host = "https://identitytoolkit.googleapis.com"

// service implements core.IdentityProvider against the Google Identity
// Toolkit REST API (the backend of Firebase Authentication). Passwords go
// straight to the provider; nothing is stored on our side.
type service struct {
	apiKey string
	client *resty.Client
}

var _ core.IdentityProvider = (*service)(nil)

func NewService(conf *core.Config) core.IdentityProvider {
	return &service{
		apiKey: conf.Firebase.APIKey,
		client: resty.New().SetHostURL(host).SetTimeout(15 * time.Second),
	}
}

type (
	authRequest struct {
		Email             string `json:"email,omitempty"`
		Password          string `json:"password,omitempty"`
		RequestType       string `json:"requestType,omitempty"`
		ReturnSecureToken bool   `json:"returnSecureToken,omitempty"`
	}

	authResponse struct {
		LocalID string `json:"localId"`
		Email   string `json:"email"`
		IDToken string `json:"idToken"`
	}

	authError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (svc *service) CreatePrincipal(ctx context.Context, email, password string) (core.Principal, error) {
	var res authResponse
	err := svc.post(ctx, "/v1/accounts:signUp", authRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &res)
	if err != nil {
		return core.Principal{}, err
	}
	return core.Principal{UID: res.LocalID, Email: res.Email}, nil
}

func (svc *service) Authenticate(ctx context.Context, email, password string) (core.Session, error) {
	var res authResponse
	err := svc.post(ctx, "/v1/accounts:signInWithPassword", authRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &res)
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{
		Principal: core.Principal{UID: res.LocalID, Email: res.Email},
		Token:     res.IDToken,
	}, nil
}

func (svc *service) SendPasswordReset(ctx context.Context, email string) error {
	return svc.post(ctx, "/v1/accounts:sendOobCode", authRequest{
		Email:       email,
		RequestType: "PASSWORD_RESET",
	}, &authResponse{})
}

func (svc *service) post(ctx context.Context, endpoint string, req authRequest, res interface{}) error {
	resp, err := svc.client.R().
		SetContext(ctx).
		SetQueryParam("key", svc.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(res).
		Post(endpoint)
	if err != nil {
		return errors.Wrapf(err, "calling %s", endpoint)
	}
	if resp.IsError() {
		return mapError(resp.Body(), endpoint)
	}
	return nil
}

// mapError translates the provider's failure codes onto our sentinels.
// Codes may carry a descriptive suffix ("WEAK_PASSWORD : ..."), so we
// match on the leading token. Unknown codes pass through verbatim.
func mapError(body []byte, endpoint string) error {
	var aErr authError
	if err := json.Unmarshal(body, &aErr); err != nil {
		return errors.Errorf("calling %s: unreadable provider error", endpoint)
	}
	code := aErr.Error.Message
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}
	switch code {
	case "EMAIL_EXISTS":
		return core.ErrEmailInUse
	case "WEAK_PASSWORD":
		return core.ErrWeakPassword
	case "INVALID_EMAIL":
		return core.ErrInvalidEmail
	case "INVALID_PASSWORD":
		return core.ErrWrongPassword
	case "EMAIL_NOT_FOUND":
		return core.ErrUserNotFound
	case "MISSING_EMAIL":
		return core.ErrMissingEmail
	}
	return errors.Errorf("calling %s: %s", endpoint, aErr.Error.Message)
}
