// Package service glues the pure game engines to the session store. Every
// action is one optimistic transaction: decode the current document, revive
// or prune it if it went stale, apply the action, write the document back.
// Conflicted commits are retried under the default policy. Narration events
// and archival of displaced finished games happen after the commit and are
// best-effort.
package service

import (
	"math/rand"
	"sync"
	"time"
)

// Store keys. Each game has a single shared session per deployment.
const (
	HighLowKey = "highlow:current"
	OldMaidKey = "oldmaid:current"
)

// Game names used for event feeds and archive rows.
const (
	GameHighLow = "highlow"
	GameOldMaid = "oldmaid"
)

// dice is the service-level source of randomness, swapped out by tests.
// rand.Rand is not safe for concurrent use, so each transaction works with a
// fork seeded from the shared source under the mutex.
type dice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newDice(seed int64) *dice {
	return &dice{rng: rand.New(rand.NewSource(seed))}
}

func (d *dice) fork() *rand.Rand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return rand.New(rand.NewSource(d.rng.Int63()))
}

func nowUTC() time.Time { return time.Now().UTC() }
