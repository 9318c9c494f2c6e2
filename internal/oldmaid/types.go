// Package oldmaid implements the Old Maid session document and its
// resolution engine: round-robin deal, rank-pair reduction, draw-from-next-
// holder, sole-holder-loses completion, and the TTL shuffle lock. Like
// highlow, every function is a pure in-memory transition; the caller owns
// persistence and post-commit effects.
package oldmaid

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tclemens/cardtable/internal/deck"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

const (
	// MinPlayers is the fewest online players a deal needs.
	MinPlayers = 2

	// WaitingStale and ActiveStale are the presence-pruning thresholds per
	// session status; active games give the longer grace.
	WaitingStale = time.Minute
	ActiveStale  = 5 * time.Minute

	// IdleWarningWindow is how long before the active cutoff a player is
	// flagged with an idle warning.
	IdleWarningWindow = time.Minute

	// RecycleWaiting and RecycleActive are the idle-session windows after
	// which the document is reset; a stalled active game recycles sooner.
	RecycleWaiting = time.Hour
	RecycleActive  = 10 * time.Minute

	// ShuffleLockTTL bounds how long a shuffle holds the advisory lock.
	ShuffleLockTTL = 3 * time.Second
)

// Player is one seat. Safe means the hand is empty; Discards records laid
// down pairs, two equal-rank cards each.
type Player struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Hand        []deck.Card    `json:"hand"`
	Discards    [][2]deck.Card `json:"discards"`
	Online      bool           `json:"online"`
	Safe        bool           `json:"isSafe"`
	IdleWarning bool           `json:"idleWarning"`
}

// HasCards reports whether the player still holds cards.
func (p *Player) HasCards() bool { return len(p.Hand) > 0 }

// ShuffleLock is the advisory TTL mutex guarding hand shuffles. It is only
// effective because every writer goes through the same transactional path.
type ShuffleLock struct {
	Player    string    `json:"player"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session is the authoritative Old Maid document.
type Session struct {
	Status        Status               `json:"status"`
	Players       []Player             `json:"players"`
	TurnIndex     int                  `json:"turnIndex"`
	TurnStartedAt time.Time            `json:"turnStartedAt"`
	Loser         string               `json:"loser,omitempty"`
	Lock          *ShuffleLock         `json:"shuffleLock,omitempty"`
	LastSeen      map[string]time.Time `json:"playerLastSeen"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// NewSession creates an empty waiting session.
func NewSession(now time.Time) *Session {
	return &Session{
		Status:    StatusWaiting,
		Players:   []Player{},
		TurnIndex: -1,
		LastSeen:  map[string]time.Time{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Decode unmarshals a stored document. A nil document yields (nil, nil).
func Decode(doc []byte) (*Session, error) {
	if doc == nil {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode oldmaid session: %w", err)
	}
	return &s, nil
}

// Encode marshals the session for storage.
func (s *Session) Encode() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode oldmaid session: %w", err)
	}
	return raw, nil
}

// Seated reports whether key holds a seat.
func (s *Session) Seated(key string) bool { return s.playerIndex(key) >= 0 }

func (s *Session) playerIndex(key string) int {
	for i := range s.Players {
		if s.Players[i].Name == key {
			return i
		}
	}
	return -1
}

// CurrentPlayer returns the turn holder, or nil when the roster is empty.
func (s *Session) CurrentPlayer() *Player {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Players) {
		return nil
	}
	return &s.Players[s.TurnIndex]
}

// seats adapts the roster to the turn coordinator: eligibility means still
// holding cards, optionally online.
type seats []Player

func (v seats) Len() int { return len(v) }

func (v seats) Eligible(i int, requireOnline bool) bool {
	return len(v[i].Hand) > 0 && (!requireOnline || v[i].Online)
}

// holders returns the indices of players still holding cards.
func (s *Session) holders() []int {
	var out []int
	for i := range s.Players {
		if s.Players[i].HasCards() {
			out = append(out, i)
		}
	}
	return out
}
