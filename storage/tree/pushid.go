package tree

import (
	"math/rand"
	"sync"
	"time"
)

// Push keys are 20 characters: 8 encoding the timestamp in milliseconds
// followed by 12 random characters. The alphabet is ordered by ASCII value
// so keys generated by one client sort by creation time. When two keys are
// generated in the same millisecond the random part is incremented instead,
// which keeps the ordering strict.
const pushKeyChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

type keyGen struct {
	mu       sync.Mutex
	lastMs   int64
	lastRand [12]int
	rnd      *rand.Rand
}

var defaultKeyGen = newKeyGen()

func newKeyGen() *keyGen {
	return &keyGen{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewKey returns a fresh push key.
func NewKey() string { return defaultKeyGen.next(time.Now()) }

func (g *keyGen) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := now.UnixNano() / int64(time.Millisecond)
	dup := ms == g.lastMs
	g.lastMs = ms

	var buf [20]byte
	for i := 7; i >= 0; i-- {
		buf[i] = pushKeyChars[ms%64]
		ms /= 64
	}

	if dup {
		// same millisecond as the previous key: bump the random part
		for i := 11; i >= 0; i-- {
			if g.lastRand[i] != 63 {
				g.lastRand[i]++
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		for i := range g.lastRand {
			g.lastRand[i] = g.rnd.Intn(64)
		}
	}
	for i, r := range g.lastRand {
		buf[8+i] = pushKeyChars[r]
	}
	return string(buf[:])
}
