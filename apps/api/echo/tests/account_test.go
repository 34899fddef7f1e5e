package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/edecs/elearn/core/account"
	testutil "github.com/edecs/elearn/tests"
)

func Test_accountApi_login(t *testing.T) {
	server, deps := setup(t)
	testutil.CreateAccount(t, deps.AccountSvc, "admin@test.cd", "secret1", true)
	testutil.CreateAccount(t, deps.AccountSvc, "off@test.cd", "secret1", false)
	if err := deps.AccountSvc.DisableAccount(context.Background(), "off@test.cd"); err != nil {
		t.Fatalf("DisableAccount() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "OK", body: marshallObj(t, map[string]string{"email": "admin@test.cd", "password": "secret1"}),
			wantCode: http.StatusOK,
		},
		{
			name: "wrong password", body: marshallObj(t, map[string]string{"email": "admin@test.cd", "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown account", body: marshallObj(t, map[string]string{"email": "who@test.cd", "password": "secret1"}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "disabled account", body: marshallObj(t, map[string]string{"email": "off@test.cd", "password": "secret1"}),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account disabled"}),
		},
		{
			name: "malformed email", body: marshallObj(t, map[string]string{"email": "nope", "password": "secret1"}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			server.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_accountApi_passwordReset(t *testing.T) {
	server, deps := setup(t)
	testutil.CreateAccount(t, deps.AccountSvc, "user@test.cd", "secret1", false)

	// the response never reveals whether the account exists
	for _, email := range []string{"user@test.cd", "unknown@test.cd"} {
		body := marshallObj(t, map[string]string{"email": email})
		req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	}
	if got := deps.Provider.Resets(); len(got) != 1 || got[0] != "user@test.cd" {
		t.Errorf("provider resets = %v, want [user@test.cd]", got)
	}
}

func Test_accountApi_crud(t *testing.T) {
	server, deps := setup(t)
	testutil.CreateAccount(t, deps.AccountSvc, "admin@test.cd", "secret1", true)
	testutil.CreateAccount(t, deps.AccountSvc, "user@test.cd", "secret1", false)
	adminToken := getToken(t, server, "admin@test.cd", "secret1")
	userToken := getToken(t, server, "user@test.cd", "secret1")

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/accounts",
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodGet, path: "/v1/accounts", token: userToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", method: http.MethodGet, path: "/v1/accounts", token: adminToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []interface{}{
				accountResp("admin@test.cd", account.RoleAdmin),
				accountResp("user@test.cd", account.RoleUser),
			}),
		},
		{
			name: "Create", method: http.MethodPost, path: "/v1/accounts", token: adminToken,
			body:     marshallObj(t, map[string]interface{}{"email": "new@test.cd", "password": "secret1"}),
			wantCode: http.StatusCreated,
			wantData: marshallObj(t, accountResp("new@test.cd", account.RoleUser)),
		},
		{
			name: "Create duplicate", method: http.MethodPost, path: "/v1/accounts", token: adminToken,
			body:     marshallObj(t, map[string]interface{}{"email": "user@test.cd", "password": "secret1"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Change role", method: http.MethodPut, path: "/v1/accounts/role", token: adminToken,
			body:     marshallObj(t, map[string]string{"email": "user@test.cd", "role": account.RoleDisabled}),
			wantCode: http.StatusNoContent,
		},
		{
			name: "Change role (unknown)", method: http.MethodPut, path: "/v1/accounts/role", token: adminToken,
			body:     marshallObj(t, map[string]string{"email": "user@test.cd", "role": "superuser"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Grant course", method: http.MethodPut, path: "/v1/accounts/grant", token: adminToken,
			body:     marshallObj(t, map[string]interface{}{"email": "user@test.cd", "course_id": "c1", "granted": true}),
			wantCode: http.StatusNoContent,
		},
		{
			name: "Delete self forbidden", method: http.MethodDelete, token: adminToken,
			path:     "/v1/accounts?email=" + url.QueryEscape("admin@test.cd"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Delete", method: http.MethodDelete, token: adminToken,
			path:     "/v1/accounts?email=" + url.QueryEscape("user@test.cd"),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	// the role change above kept both presence indexes; the delete removed them
	if _, err := deps.Roles.Get(context.Background(), "user@test,cd"); err != account.ErrNotFound {
		t.Errorf("deleted account still has a role record: %v", err)
	}
}
