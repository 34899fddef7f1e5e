package inmemtree

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/edecs/elearn/storage/tree"
)

func TestStoreReadWrite(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Read(ctx, "roles/a@b,com", new(map[string]interface{})); err != tree.ErrAbsent {
		t.Fatalf("Read() on empty store error = %v, want ErrAbsent", err)
	}

	record := map[string]interface{}{"email": "a@b.com", "role": "user"}
	if err := s.Write(ctx, "roles/a@b,com", record); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got map[string]interface{}
	if err := s.Read(ctx, "roles/a@b,com", &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got["email"] != "a@b.com" || got["role"] != "user" {
		t.Errorf("Read() = %v", got)
	}

	// single-field write under the record
	if err := s.Write(ctx, "roles/a@b,com/role", "admin"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Read(ctx, "roles/a@b,com", &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got["role"] != "admin" {
		t.Errorf("role = %v, want admin", got["role"])
	}
	if got["email"] != "a@b.com" {
		t.Errorf("email = %v; sibling field must survive a single-field write", got["email"])
	}
}

func TestStoreDeleteSubtree(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Write(ctx, "courses/c1", map[string]string{"name": "Go"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "courses/c1/questions/q1", map[string]string{"question": "?"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// null-write deletes the whole subtree
	if err := s.Write(ctx, "courses/c1", nil); err != nil {
		t.Fatalf("Write(nil) error = %v", err)
	}
	if err := s.Read(ctx, "courses/c1", new(map[string]interface{})); err != tree.ErrAbsent {
		t.Errorf("Read(course) error = %v, want ErrAbsent", err)
	}
	if err := s.Read(ctx, "courses/c1/questions/q1", new(map[string]interface{})); err != tree.ErrAbsent {
		t.Errorf("Read(question) error = %v, want ErrAbsent", err)
	}
	// emptied parent reads as absent too
	if err := s.Read(ctx, "courses", new(map[string]interface{})); err != tree.ErrAbsent {
		t.Errorf("Read(courses) error = %v, want ErrAbsent", err)
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Write(ctx, "admins/a@b,com", map[string]string{"email": "a@b.com"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var pushes []map[string]interface{}
	unsub, err := s.Subscribe("admins", func(raw json.RawMessage) {
		var snapshot map[string]interface{}
		_ = json.Unmarshal(raw, &snapshot)
		pushes = append(pushes, snapshot)
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// initial snapshot delivered on registration
	if len(pushes) != 1 || pushes[0]["a@b,com"] == nil {
		t.Fatalf("initial push = %v", pushes)
	}

	// descendant write fires the listener
	if err := s.Write(ctx, "admins/x,y,z", map[string]string{"email": "x@y.z"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(pushes) != 2 || len(pushes[1]) != 2 {
		t.Fatalf("pushes after write = %v", pushes)
	}

	// unrelated write does not
	if err := s.Write(ctx, "courses/c1", map[string]string{"name": "Go"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(pushes) != 2 {
		t.Fatalf("unrelated write fired the listener: %v", pushes)
	}

	// tombstone write pushes null
	if err := s.Write(ctx, "admins", nil); err != nil {
		t.Fatalf("Write(nil) error = %v", err)
	}
	if len(pushes) != 3 || pushes[2] != nil {
		t.Fatalf("pushes after delete = %v", pushes)
	}

	unsub()
	unsub() // idempotent
	if err := s.Write(ctx, "admins/back", map[string]string{"email": "b"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(pushes) != 3 {
		t.Errorf("listener fired after unsubscribe")
	}
}

func TestStoreGenerateKey(t *testing.T) {
	s := NewStore()
	k1 := s.GenerateKey("courses")
	k2 := s.GenerateKey("courses")
	if k1 == k2 {
		t.Errorf("GenerateKey() returned duplicate %q", k1)
	}
	if len(k1) != 20 {
		t.Errorf("GenerateKey() = %q; want 20 chars", k1)
	}
}
