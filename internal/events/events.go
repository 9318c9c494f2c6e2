// Package events is the non-transactional narration side channel. Engines
// return the events a committed transition produced; the action surface emits
// them after the store transaction commits. Delivery is best-effort and
// at-most-once: losing a log line is acceptable, losing state consistency is
// not, so nothing here ever feeds back into a transaction.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type tags a narration event.
type Type string

const (
	TypeJoin        Type = "join"
	TypeRejoin      Type = "rejoin"
	TypeOnline      Type = "online"
	TypeOffline     Type = "offline"
	TypeTurn        Type = "turn"
	TypeGuess       Type = "guess"
	TypeDraw        Type = "draw"
	TypePair        Type = "pair"
	TypeShuffle     Type = "shuffle"
	TypeForfeit     Type = "forfeit"
	TypePruned      Type = "pruned"
	TypeIdleWarning Type = "idle_warning"
	TypeGameStart   Type = "game_start"
	TypeGameOver    Type = "game_over"
	TypeNewGame     Type = "new_game"
	TypeReset       Type = "reset"
)

// Event is one human-readable entry in a session's append-only log.
type Event struct {
	ID      string         `json:"id"`
	Session string         `json:"session"`
	Type    Type           `json:"type"`
	Player  string         `json:"player,omitempty"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// New builds an event stamped with a fresh id. At defaults to the wall
// clock; the services overwrite it with the transaction time before
// emitting.
func New(typ Type, player, message string) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    typ,
		Player:  player,
		Message: message,
		At:      time.Now().UTC(),
	}
}

// WithPayload attaches extra structured data.
func (e Event) WithPayload(payload map[string]any) Event {
	e.Payload = payload
	return e
}

// Sink receives committed events. Implementations must not block the caller
// on delivery.
type Sink interface {
	Emit(session string, evs ...Event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(string, ...Event) {}
