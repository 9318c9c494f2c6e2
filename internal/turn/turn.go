// Package turn implements turn-index selection shared by both game engines.
// The coordinator never owns state: it scans a read-only seat view and
// returns the index the caller should commit.
package turn

import "time"

// HangTimeout is how long the turn holder may sit on a turn before any other
// player can forfeit it via hang resolution.
const HangTimeout = 3 * time.Minute

// Seats is a read-only view of the player list.
type Seats interface {
	// Len returns the number of seats.
	Len() int
	// Eligible reports whether the player at i may hold the turn under the
	// given online requirement.
	Eligible(i int, requireOnline bool) bool
}

// Ensure keeps preferred if that seat is eligible, otherwise scans forward
// circularly for the first eligible seat. Returns -1 when no seat qualifies;
// callers then leave the index pointing at the last-known holder so the
// session stays well-formed until someone reconnects.
func Ensure(s Seats, preferred int, requireOnline bool) int {
	n := s.Len()
	if n == 0 {
		return -1
	}
	if preferred < 0 || preferred >= n {
		preferred = 0
	}
	for off := 0; off < n; off++ {
		i := (preferred + off) % n
		if s.Eligible(i, requireOnline) {
			return i
		}
	}
	return -1
}

// Advance scans from one position past current; used after a turn completes
// or is forfeited.
func Advance(s Seats, current int, requireOnline bool) int {
	n := s.Len()
	if n == 0 {
		return -1
	}
	return Ensure(s, (current+1)%n, requireOnline)
}

// Hung reports whether a turn started at startedAt has exceeded the hang
// timeout.
func Hung(startedAt, now time.Time) bool {
	return !startedAt.IsZero() && now.Sub(startedAt) > HangTimeout
}
