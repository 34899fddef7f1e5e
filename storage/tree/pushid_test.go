package tree

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestNewKey(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 1000; i++ {
		key := NewKey()
		if len(key) != 20 {
			t.Fatalf("NewKey() = %q; want 20 chars", key)
		}
		if strings.ContainsAny(key, "./#$[]") {
			t.Fatalf("NewKey() = %q; contains forbidden characters", key)
		}
		if seen[key] {
			t.Fatalf("NewKey() = %q; duplicate", key)
		}
		if key <= prev {
			t.Fatalf("NewKey() = %q; not greater than previous %q", key, prev)
		}
		seen[key] = true
		prev = key
	}
}

func TestKeyGenSameMillisecond(t *testing.T) {
	g := &keyGen{rnd: rand.New(rand.NewSource(1))}
	now := time.Now()

	k1 := g.next(now)
	k2 := g.next(now)
	if k1[:8] != k2[:8] {
		t.Errorf("timestamp prefixes differ: %q vs %q", k1[:8], k2[:8])
	}
	if k2 <= k1 {
		t.Errorf("second key %q not greater than first %q", k2, k1)
	}
}
