package oldmaid

import (
	"math/rand"
	"time"

	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
)

// Join seats a new player or refreshes an existing one. Old Maid takes no
// mid-game entrants: while a game is active only names that already hold a
// seat may come back.
func (s *Session) Join(key, display string, now time.Time) ([]events.Event, error) {
	if i := s.playerIndex(key); i >= 0 {
		s.LastSeen[key] = now
		p := &s.Players[i]
		wasOnline := p.Online
		p.Online = true
		p.IdleWarning = false
		if display != "" {
			p.DisplayName = display
		}
		if wasOnline {
			return nil, nil
		}
		return []events.Event{events.New(events.TypeRejoin, key, display+" is back")}, nil
	}

	switch s.Status {
	case StatusActive:
		return nil, fault.New(fault.GameInProgress, "a game is already underway")
	case StatusComplete:
		return nil, fault.New(fault.InvalidSession, "game is over; start a new one")
	}

	s.Players = append(s.Players, Player{
		Name:        key,
		DisplayName: display,
		Online:      true,
	})
	s.LastSeen[key] = now
	return []events.Event{events.New(events.TypeJoin, key, display+" took a seat")}, nil
}

// StartGame deals the first game of a waiting session. The requester must be
// seated; at least two players must be online.
func (s *Session) StartGame(key string, rng *rand.Rand, now time.Time) ([]events.Event, error) {
	if s.playerIndex(key) == -1 {
		return nil, fault.New(fault.PlayerNotFound, key+" is not seated")
	}
	switch s.Status {
	case StatusActive:
		return nil, fault.New(fault.GameInProgress, "a game is already underway")
	case StatusComplete:
		return nil, fault.New(fault.SessionComplete, "game is over; start a new one")
	}
	return s.deal(rng, now)
}

// Replay implements the start-new-game action: the finished game is replaced
// by a fresh deal to everyone still online. With too few players online the
// session falls back to waiting instead. The caller archives the finished
// document.
func (s *Session) Replay(key string, rng *rand.Rand, now time.Time) ([]events.Event, error) {
	if s.playerIndex(key) == -1 {
		return nil, fault.New(fault.PlayerNotFound, key+" is not seated")
	}
	if s.Status != StatusComplete {
		return nil, fault.New(fault.InvalidSession, "game is not complete")
	}

	evs := []events.Event{events.New(events.TypeNewGame, key, "rematch!")}

	online := 0
	for _, p := range s.Players {
		if p.Online {
			online++
		}
	}
	if online < MinPlayers {
		// Not enough players for an immediate deal: reseat whoever is
		// online and wait.
		fresh := NewSession(now)
		for _, p := range s.Players {
			if p.Online {
				fresh.Players = append(fresh.Players, Player{
					Name:        p.Name,
					DisplayName: p.DisplayName,
					Online:      true,
				})
				fresh.LastSeen[p.Name] = now
			}
		}
		*s = *fresh
		return evs, nil
	}

	s.Status = StatusWaiting
	s.Loser = ""
	dealEvs, err := s.deal(rng, now)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = now
	return append(evs, dealEvs...), nil
}

// ReviveIfStale resets a session that has sat untouched past its staleness
// window: a stalled active game recycles sooner than an idle lobby. Invoked
// at the top of every transaction.
func (s *Session) ReviveIfStale(now time.Time) []events.Event {
	window := RecycleWaiting
	if s.Status == StatusActive {
		window = RecycleActive
	}
	if s.UpdatedAt.IsZero() || now.Sub(s.UpdatedAt) <= window {
		return nil
	}
	*s = *NewSession(now)
	return []events.Event{events.New(events.TypeReset, "", "idle session recycled")}
}
