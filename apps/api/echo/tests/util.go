package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/edecs/elearn/apps/api/echo"
	"github.com/edecs/elearn/core/identity"
	testutil "github.com/edecs/elearn/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func setup(t *testing.T) (*Server, *testutil.Deps) {
	deps := testutil.NewDeps(t)
	validate, translator := testutil.NewValidator()

	server := NewServer(
		ServerDeps{
			Conf:       deps.Conf,
			Logger:     testutil.Logger{T: t},
			AccountSvc: deps.AccountSvc,
			CourseRepo: deps.CourseRepo,
			Provider:   deps.Provider,
			Tree:       deps.Tree,
			Validate:   validate,
			Translator: translator,
		},
	)
	return server, deps
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken logs the account in through the API and returns its token.
func getToken(t *testing.T, server *Server, email, password string) string {
	t.Helper()

	body := marshallObj(t, map[string]string{"email": email, "password": password})
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("getToken() failed: %v %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return resp.Token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func accountResp(email, role string, courses ...string) map[string]interface{} {
	if courses == nil {
		courses = []string{}
	}
	return map[string]interface{}{
		"key":     identity.Key(email),
		"email":   email,
		"role":    role,
		"courses": courses,
	}
}
