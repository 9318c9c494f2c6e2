// Package highlow implements the High/Low session document and its
// resolution engine. All functions mutate a decoded Session value and report
// the narration events the transition produced; persistence, retry, and
// post-commit effects belong to the caller.
package highlow

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

// Outcome names who won a completed game.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomePlayers Outcome = "players" // deck ran out with a pile still open
	OutcomeDeck    Outcome = "deck"    // every pile got locked
)

// Guess is a declared direction.
type Guess string

const (
	GuessHigher Guess = "higher"
	GuessLower  Guess = "lower"
)

const (
	// PileCount is the fixed 3×3 grid size.
	PileCount = 9

	// StaleAfter is how long a player may go without a presence report
	// before opportunistic pruning removes them.
	StaleAfter = 2 * time.Minute

	// RecycleAfter is how long an untouched session document lives before
	// it is silently reset to an empty waiting state.
	RecycleAfter = time.Hour
)

// Player is one seat. Name is the canonical lower-case key; Active=false
// means out of the turn order but historically part of the game.
type Player struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
	Online      bool   `json:"online"`
}

// Pile is one of the nine guess targets. Cards holds the face-up run with
// the most recent card last. FaceUp is monotonic: once false it never
// becomes true again for the life of the session.
type Pile struct {
	ID     string      `json:"id"`
	Row    int         `json:"row"`
	Col    int         `json:"col"`
	Cards  []deck.Card `json:"cards"`
	FaceUp bool        `json:"faceUp"`
}

// Top returns the most recent card on the pile.
func (p *Pile) Top() (deck.Card, bool) {
	if len(p.Cards) == 0 {
		return deck.Card{}, false
	}
	return p.Cards[len(p.Cards)-1], true
}

// Session is the authoritative High/Low document.
type Session struct {
	Status        Status               `json:"status"`
	Players       []Player             `json:"players"`
	Deck          []deck.Card          `json:"deck"`
	Piles         []Pile               `json:"piles"`
	TurnIndex     int                  `json:"turnIndex"`
	TurnStartedAt time.Time            `json:"turnStartedAt"`
	Outcome       Outcome              `json:"outcome"`
	LastSeen      map[string]time.Time `json:"playerLastSeen"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Decode unmarshals a stored document. A nil document yields (nil, nil).
func Decode(doc []byte) (*Session, error) {
	if doc == nil {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode highlow session: %w", err)
	}
	return &s, nil
}

// Encode marshals the session for storage.
func (s *Session) Encode() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode highlow session: %w", err)
	}
	return raw, nil
}

// Seated reports whether key holds a seat.
func (s *Session) Seated(key string) bool { return s.playerIndex(key) >= 0 }

// playerIndex finds a seat by canonical name.
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

// seats adapts the roster to the turn coordinator's view.
type seats []Player

func (v seats) Len() int { return len(v) }

func (v seats) Eligible(i int, requireOnline bool) bool {
	return v[i].Active && (!requireOnline || v[i].Online)
}

// openPiles counts piles still accepting guesses.
func (s *Session) openPiles() int {
	n := 0
	for i := range s.Piles {
		if s.Piles[i].FaceUp {
			n++
		}
	}
	return n
}
