package account

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/storage/tree"
)

// Store is the Role & Enrollment store: every mutation writes through to
// the remote tree and updates an in-memory mirror used for immediate
// feedback. The mirror is also fed by subscriptions, replaced wholesale on
// every push, so it converges on whatever the remote store holds. Writes
// are never retried here; the caller decides what a failure means.
type Store struct {
	db tree.Store

	mu     sync.RWMutex
	mirror map[string]Record
}

func NewStore(db tree.Store) *Store {
	return &Store{db: db, mirror: make(map[string]Record)}
}

func rolePath(key string) string { return tree.Join("roles", key) }

// Create writes the full Record for a fresh identity.
func (s *Store) Create(ctx context.Context, key string, rec Record) error {
	if rec.Courses == nil {
		rec.Courses = []string{}
	}
	if err := s.db.Write(ctx, rolePath(key), rec); err != nil {
		return errors.Wrapf(err, "creating role record %q", key)
	}
	s.mu.Lock()
	s.mirror[key] = rec
	s.mu.Unlock()
	return nil
}

// Get reads the Record straight from the remote tree.
func (s *Store) Get(ctx context.Context, key string) (Record, error) {
	var rec Record
	if err := s.db.Read(ctx, rolePath(key), &rec); err != nil {
		if errors.Cause(err) == tree.ErrAbsent {
			return Record{}, ErrNotFound
		}
		return Record{}, errors.Wrapf(err, "reading role record %q", key)
	}
	return rec, nil
}

// QueryAll reads every role record from the remote tree, keyed by identity
// key.
func (s *Store) QueryAll(ctx context.Context) (map[string]Record, error) {
	records := make(map[string]Record)
	if err := s.db.Read(ctx, "roles", &records); err != nil {
		if errors.Cause(err) == tree.ErrAbsent {
			return records, nil
		}
		return nil, errors.Wrap(err, "reading role records")
	}
	return records, nil
}

// Mirror returns the locally mirrored Record, if any.
func (s *Store) Mirror(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.mirror[key]
	return rec, ok
}

// SetRole overwrites the role field only; the grant set is untouched.
func (s *Store) SetRole(ctx context.Context, key, role string) error {
	if err := s.db.Write(ctx, tree.Join(rolePath(key), "role"), role); err != nil {
		return errors.Wrapf(err, "setting role of %q", key)
	}
	s.mu.Lock()
	rec := s.mirror[key]
	rec.Role = role
	s.mirror[key] = rec
	s.mu.Unlock()
	return nil
}

// SetCourseGrants overwrites the full grant set. Callers recompute the
// whole desired set first; this is not a delta merge.
func (s *Store) SetCourseGrants(ctx context.Context, key string, courseIDs []string) error {
	if courseIDs == nil {
		courseIDs = []string{} // nil would tombstone the node
	}
	if err := s.db.Write(ctx, tree.Join(rolePath(key), "courses"), courseIDs); err != nil {
		return errors.Wrapf(err, "setting course grants of %q", key)
	}
	s.mu.Lock()
	rec := s.mirror[key]
	rec.Courses = courseIDs
	s.mirror[key] = rec
	s.mu.Unlock()
	return nil
}

// Remove tombstones the Record with a null-write.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.db.Write(ctx, rolePath(key), nil); err != nil {
		return errors.Wrapf(err, "removing role record %q", key)
	}
	s.mu.Lock()
	delete(s.mirror, key)
	s.mu.Unlock()
	return nil
}

// Watch pushes the Record for one identity on every remote change.
// present is false when the record is absent (never created, or removed).
func (s *Store) Watch(key string, fn func(rec Record, present bool)) (tree.Unsubscribe, error) {
	return s.db.Subscribe(rolePath(key), func(raw json.RawMessage) {
		var rec Record
		present := unmarshalPush(raw, &rec)

		s.mu.Lock()
		if present {
			s.mirror[key] = rec
		} else {
			delete(s.mirror, key)
		}
		s.mu.Unlock()

		fn(rec, present)
	})
}

// WatchAll pushes the whole roles subtree on every remote change and
// replaces the mirror wholesale, never patching it.
func (s *Store) WatchAll(fn func(records map[string]Record)) (tree.Unsubscribe, error) {
	return s.db.Subscribe("roles", func(raw json.RawMessage) {
		records := make(map[string]Record)
		unmarshalPush(raw, &records)

		s.mu.Lock()
		s.mirror = records
		s.mu.Unlock()

		snapshot := make(map[string]Record, len(records))
		for k, v := range records {
			snapshot[k] = v
		}
		fn(snapshot)
	})
}

// unmarshalPush decodes a subscription payload; a JSON null (absent node)
// or a payload we cannot decode counts as absent.
func unmarshalPush(raw json.RawMessage, dest interface{}) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}
