package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/core/course"
	testutil "github.com/edecs/elearn/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Deps) {
	deps := testutil.NewDeps(t)
	cli := &commandLine{
		accountSvc: deps.AccountSvc,
		courseRepo: deps.CourseRepo,
	}
	return cli, deps
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, deps := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "a@test.cd"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-email", "a@test.cd"}, extra: extra{pwd: "meh"}, wantErr: core.ErrWeakPassword},
		{name: "add user", args: []string{"adduser", "-email", "a@test.cd"}, extra: extra{pwd: "secret1"}},
		{name: "add admin", args: []string{"adduser", "-email", "boss@test.cd", "-admin"}, extra: extra{pwd: "secret1"}},
		{name: "duplicate", args: []string{"adduser", "-email", "a@test.cd"}, extra: extra{pwd: "secret1"}, wantErr: core.ErrEmailInUse},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	rec, err := deps.Roles.Get(context.Background(), "boss@test,cd")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !rec.IsAdmin() {
		t.Errorf("admin account role = %q", rec.Role)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, deps := setup(t)
	testutil.CreateAccount(t, deps.AccountSvc, "a@test.cd", "secret1", false)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"resetpassword", "-email", "lol"}, wantErr: core.ErrInvalidEmail},
		{name: "unknown account", args: []string{"resetpassword", "-email", "who@test.cd"}, wantErr: core.ErrUserNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "a@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if got := deps.Provider.Resets(); len(got) != 1 || got[0] != "a@test.cd" {
		t.Errorf("provider resets = %v, want [a@test.cd]", got)
	}
}

func Test_commandLine_grant(t *testing.T) {
	cli, deps := setup(t)
	testutil.CreateAccount(t, deps.AccountSvc, "a@test.cd", "secret1", false)
	courseID := testutil.CreateCourse(t, deps.CourseRepo, "Safety", 1, 1)

	grants := func() []string {
		t.Helper()
		rec, err := deps.Roles.Get(context.Background(), "a@test,cd")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		return rec.Courses
	}

	tests := []cliTest{
		{name: "no args", args: []string{"grant"}, wantErr: errHelp},
		{name: "email but no course", args: []string{"grant", "-email", "a@test.cd"}, wantErr: errHelp},
		{name: "unknown course", args: []string{"grant", "-email", "a@test.cd", "-course", "nope"}, wantErr: course.ErrNotFound},
		{name: "grant", args: []string{"grant", "-email", "a@test.cd", "-course", courseID}},
		{name: "revoke dangling", args: []string{"grant", "-email", "a@test.cd", "-course", "nope", "-revoke"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if got := grants(); len(got) != 1 || got[0] != courseID {
		t.Errorf("grants = %v, want [%s]", got, courseID)
	}
}
