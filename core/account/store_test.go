package account_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/edecs/elearn/core/account"
	testutil "github.com/edecs/elearn/tests"
)

func TestStoreSetRoleLeavesGrantsAlone(t *testing.T) {
	deps := testutil.NewDeps(t)
	ctx := context.Background()
	roles := deps.Roles

	rec := account.Record{Email: "a@b.com", Role: account.RoleUser, Courses: []string{"c1", "c2"}}
	if err := roles.Create(ctx, "a@b,com", rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := roles.SetRole(ctx, "a@b,com", account.RoleAdmin); err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}

	got, err := roles.Get(ctx, "a@b,com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Role != account.RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, account.RoleAdmin)
	}
	if !reflect.DeepEqual(got.Courses, []string{"c1", "c2"}) {
		t.Errorf("Courses = %v; a role write must not touch the grant set", got.Courses)
	}
	if got.Email != "a@b.com" {
		t.Errorf("Email = %q", got.Email)
	}
}

func TestStoreRemoveTombstones(t *testing.T) {
	deps := testutil.NewDeps(t)
	ctx := context.Background()
	roles := deps.Roles

	if err := roles.Create(ctx, "a@b,com", account.Record{Email: "a@b.com", Role: account.RoleUser}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := roles.Remove(ctx, "a@b,com"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := roles.Get(ctx, "a@b,com"); err != account.ErrNotFound {
		t.Errorf("Get() after Remove() error = %v, want ErrNotFound", err)
	}
	if _, ok := roles.Mirror("a@b,com"); ok {
		t.Error("mirror still holds the removed record")
	}
}

func TestStoreWatch(t *testing.T) {
	deps := testutil.NewDeps(t)
	ctx := context.Background()
	roles := deps.Roles

	var got []account.Record
	var present []bool
	unsub, err := roles.Watch("a@b,com", func(rec account.Record, ok bool) {
		got = append(got, rec)
		present = append(present, ok)
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer unsub()

	// initial push: absent
	if len(present) != 1 || present[0] {
		t.Fatalf("initial push present = %v, want [false]", present)
	}

	if err := roles.Create(ctx, "a@b,com", account.Record{Email: "a@b.com", Role: account.RoleUser}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(got) != 2 || !present[1] || got[1].Role != account.RoleUser {
		t.Fatalf("push after create = %+v (present %v)", got, present)
	}

	// single-field remote write still pushes the full record
	if err := roles.SetRole(ctx, "a@b,com", account.RoleDisabled); err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}
	if len(got) != 3 || got[2].Role != account.RoleDisabled || got[2].Email != "a@b.com" {
		t.Fatalf("push after role change = %+v", got[len(got)-1])
	}

	// the mirror follows the pushes
	rec, ok := roles.Mirror("a@b,com")
	if !ok || rec.Role != account.RoleDisabled {
		t.Errorf("Mirror() = %+v, %v", rec, ok)
	}
}
