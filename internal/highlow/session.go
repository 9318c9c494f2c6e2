package highlow

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tclemens/cardtable/internal/deck"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
	"github.com/tclemens/cardtable/internal/turn"
)

// NewSession creates a fresh waiting session with the deal already laid out:
// 52 cards shuffled, the first nine face-up as the 3×3 pile grid, the rest
// forming the draw deck.
func NewSession(rng *rand.Rand, now time.Time) *Session {
	cards := deck.Standard()
	deck.Shuffle(cards, rng)

	piles := make([]Pile, PileCount)
	for i := 0; i < PileCount; i++ {
		piles[i] = Pile{
			ID:     fmt.Sprintf("pile-%d", i),
			Row:    i / 3,
			Col:    i % 3,
			Cards:  []deck.Card{cards[i]},
			FaceUp: true,
		}
	}

	return &Session{
		Status:    StatusWaiting,
		Players:   []Player{},
		Deck:      cards[PileCount:],
		Piles:     piles,
		TurnIndex: -1,
		LastSeen:  map[string]time.Time{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ensureTurn points TurnIndex at preferred when that seat is eligible, else
// the next best seat. Online players are preferred; with nobody online the
// index settles on an active offline player; with nobody active at all it is
// left where it was so the document stays well-formed for reconnects.
// Reports whether the holder changed.
func (s *Session) ensureTurn(preferred int, now time.Time) bool {
	idx := turn.Ensure(seats(s.Players), preferred, true)
	if idx == -1 {
		idx = turn.Ensure(seats(s.Players), preferred, false)
	}
	if idx == -1 || idx == s.TurnIndex {
		return false
	}
	s.TurnIndex = idx
	s.TurnStartedAt = now
	return true
}

// advanceTurn moves the turn one seat past the current holder.
func (s *Session) advanceTurn(now time.Time) bool {
	idx := turn.Advance(seats(s.Players), s.TurnIndex, true)
	if idx == -1 {
		idx = turn.Advance(seats(s.Players), s.TurnIndex, false)
	}
	if idx == -1 {
		return false
	}
	changed := idx != s.TurnIndex
	s.TurnIndex = idx
	s.TurnStartedAt = now
	return changed
}

// Join seats a new player or refreshes an existing one (reconnect). A
// seated player rejoining a finished game just refreshes presence; the
// service replaces the document before seating anyone new at one.
func (s *Session) Join(key, display string, now time.Time) []events.Event {
	s.LastSeen[key] = now

	if i := s.playerIndex(key); i >= 0 {
		p := &s.Players[i]
		wasOnline := p.Online
		p.Online = true
		if display != "" {
			p.DisplayName = display
		}
		if wasOnline {
			return nil
		}
		if s.Status != StatusComplete {
			s.ensureTurn(s.TurnIndex, now)
		}
		return []events.Event{events.New(events.TypeRejoin, key, display+" is back")}
	}

	s.Players = append(s.Players, Player{
		Name:        key,
		DisplayName: display,
		Active:      true,
		Online:      true,
	})
	if s.TurnIndex == -1 {
		s.ensureTurn(0, now)
	}
	return []events.Event{events.New(events.TypeJoin, key, display+" joined the table")}
}

// ReviveIfStale resets a session that has sat untouched past the staleness
// window back to an empty waiting deal. Invoked at the top of every
// transaction rather than from a timer.
func (s *Session) ReviveIfStale(rng *rand.Rand, now time.Time) []events.Event {
	if s.UpdatedAt.IsZero() || now.Sub(s.UpdatedAt) <= RecycleAfter {
		return nil
	}
	*s = *NewSession(rng, now)
	return []events.Event{events.New(events.TypeReset, "", "idle session recycled")}
}

// Replay implements the start-new-game action: the current game must be
// complete; all currently-online players are reseated at a fresh deal. The
// caller archives the finished document.
func (s *Session) Replay(key string, rng *rand.Rand, now time.Time) ([]events.Event, error) {
	if s.playerIndex(key) == -1 {
		return nil, fault.New(fault.PlayerNotFound, key+" is not at the table")
	}
	if s.Status != StatusComplete {
		return nil, fault.New(fault.InvalidSession, "game is not complete")
	}

	fresh := NewSession(rng, now)
	for _, p := range s.Players {
		if !p.Online {
			continue
		}
		fresh.Players = append(fresh.Players, Player{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Active:      true,
			Online:      true,
		})
		fresh.LastSeen[p.Name] = now
	}
	fresh.ensureTurn(0, now)
	*s = *fresh

	return []events.Event{events.New(events.TypeNewGame, key, "new game dealt")}, nil
}
