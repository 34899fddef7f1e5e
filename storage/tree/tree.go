package tree

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrAbsent is returned by Read when there is no value at the path.
	ErrAbsent = errors.New("no value at path")
)

type (
	// Unsubscribe tears down a subscription. It is idempotent.
	Unsubscribe func()

	// Store is a hierarchical key/value store addressed by slash-separated
	// paths, with realtime subscription push. Writing nil deletes the
	// subtree at the path. Atomicity is only guaranteed per path; there
	// are no multi-path transactions.
	Store interface {
		// Read unmarshals the value at path into dest; ErrAbsent if there is none.
		Read(ctx context.Context, path string, dest interface{}) error
		// Write replaces the value at path; a nil value deletes the subtree.
		Write(ctx context.Context, path string, value interface{}) error
		// Subscribe registers fn to be called with the raw JSON value at
		// path (JSON null when absent) on every change until unsubscribed.
		Subscribe(path string, fn func(raw json.RawMessage)) (Unsubscribe, error)
		// GenerateKey returns a new unique child key for parentPath.
		// Keys are generated locally and are safe to use before any write.
		GenerateKey(parentPath string) string
	}
)

// Split breaks a slash-separated path into its segments, ignoring
// leading/trailing/duplicate slashes. Split("") is empty (the root).
func Split(path string) []string {
	segs := make([]string, 0, 4)
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Join joins path segments with slashes, skipping empty ones.
func Join(segs ...string) string {
	return strings.Join(Split(strings.Join(segs, "/")), "/")
}
