package firebaseauth

import (
	"strings"
	"testing"

	"github.com/edecs/elearn/core"
)

func Test_mapError(t *testing.T) {
	payload := func(code string) []byte {
		return []byte(`{"error":{"message":"` + code + `"}}`)
	}

	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{name: "email exists", body: payload("EMAIL_EXISTS"), wantErr: core.ErrEmailInUse},
		{name: "weak password", body: payload("WEAK_PASSWORD"), wantErr: core.ErrWeakPassword},
		{name: "invalid email", body: payload("INVALID_EMAIL"), wantErr: core.ErrInvalidEmail},
		{name: "invalid password", body: payload("INVALID_PASSWORD"), wantErr: core.ErrWrongPassword},
		{name: "email not found", body: payload("EMAIL_NOT_FOUND"), wantErr: core.ErrUserNotFound},
		{name: "missing email", body: payload("MISSING_EMAIL"), wantErr: core.ErrMissingEmail},
		// the provider appends detail to some codes
		{name: "suffixed code", body: payload("WEAK_PASSWORD : Password should be at least 6 characters"), wantErr: core.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mapError(tt.body, "/v1/accounts:signUp"); err != tt.wantErr {
				t.Errorf("mapError() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// unknown codes pass through verbatim
	err := mapError(payload("TOO_MANY_ATTEMPTS_TRY_LATER"), "/v1/accounts:signUp")
	if err == nil || !strings.Contains(err.Error(), "TOO_MANY_ATTEMPTS_TRY_LATER") {
		t.Errorf("unknown code error = %v, want it passed through", err)
	}

	// a body that is not the documented error shape
	err = mapError([]byte("<html>502</html>"), "/v1/accounts:signUp")
	if err == nil || !strings.Contains(err.Error(), "unreadable provider error") {
		t.Errorf("unreadable body error = %v", err)
	}
}
