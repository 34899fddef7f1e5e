package inmemtree

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/storage/tree"
)

type (
	// Store is an in-memory tree.Store used in DEV mode and by tests.
	// Subscribers receive the current snapshot on registration and on
	// every subsequent write that touches their path.
	Store struct {
		mu     sync.RWMutex
		root   interface{}
		subs   map[int]*subscription
		nextID int
	}

	subscription struct {
		segs []string
		fn   func(raw json.RawMessage)
	}
)

var _ tree.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{subs: make(map[int]*subscription)}
}

func (s *Store) Read(ctx context.Context, path string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	val, ok := lookup(s.root, tree.Split(path))
	s.mu.RUnlock()

	if !ok || val == nil {
		return tree.ErrAbsent
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "marshaling value at %q", path)
	}
	return errors.Wrapf(json.Unmarshal(raw, dest), "unmarshaling value at %q", path)
}

func (s *Store) Write(ctx context.Context, path string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	norm, err := normalize(value)
	if err != nil {
		return errors.Wrapf(err, "normalizing value for %q", path)
	}
	segs := tree.Split(path)

	s.mu.Lock()
	s.root = set(s.root, segs, norm)
	notifies := s.collect(segs)
	s.mu.Unlock()

	for _, n := range notifies {
		n()
	}
	return nil
}

func (s *Store) Subscribe(path string, fn func(raw json.RawMessage)) (tree.Unsubscribe, error) {
	segs := tree.Split(path)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscription{segs: segs, fn: fn}
	val, _ := lookup(s.root, segs)
	raw := marshal(val)
	s.mu.Unlock()

	// initial snapshot
	fn(raw)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Store) GenerateKey(parentPath string) string {
	return tree.NewKey()
}

// collect builds the notification callbacks for every subscription whose
// path is an ancestor or a descendant of the written path. Must be called
// with the lock held; the callbacks must be invoked after releasing it.
func (s *Store) collect(written []string) []func() {
	notifies := make([]func(), 0, len(s.subs))
	for _, sub := range s.subs {
		if !related(sub.segs, written) {
			continue
		}
		val, _ := lookup(s.root, sub.segs)
		raw := marshal(val)
		fn := sub.fn
		notifies = append(notifies, func() { fn(raw) })
	}
	return notifies
}

func related(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func lookup(node interface{}, segs []string) (interface{}, bool) {
	for _, seg := range segs {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if node, ok = m[seg]; !ok {
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

// set replaces the value at segs and returns the new node, pruning empty
// branches so that an emptied subtree reads as absent.
func set(node interface{}, segs []string, value interface{}) interface{} {
	if len(segs) == 0 {
		return value
	}
	m, ok := node.(map[string]interface{})
	if !ok {
		if value == nil {
			return node // nothing to delete
		}
		m = make(map[string]interface{})
	}
	child := set(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// normalize round-trips value through JSON so the tree only ever holds
// maps, slices, strings, float64s, bools and nils. Empty maps collapse to
// nil: a node with no children does not exist.
func normalize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var norm interface{}
	if err = json.Unmarshal(raw, &norm); err != nil {
		return nil, err
	}
	return prune(norm), nil
}

func prune(node interface{}) interface{} {
	m, ok := node.(map[string]interface{})
	if !ok {
		return node
	}
	for k, v := range m {
		if v = prune(v); v == nil {
			delete(m, k)
		} else {
			m[k] = v
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func marshal(val interface{}) json.RawMessage {
	raw, err := json.Marshal(val)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}
