package oldmaid

import (
	"time"

	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
	"github.com/tclemens/cardtable/internal/turn"
)

// ReportPresence records a heartbeat. Unchanged flags only refresh the
// timestamp. A holder going offline hands the turn to the next online
// holder, and an active game with a single holder left completes against
// them — going dark is not an escape hatch.
func (s *Session) ReportPresence(key string, online bool, now time.Time) ([]events.Event, error) {
	idx := s.playerIndex(key)
	if idx == -1 {
		return nil, fault.New(fault.PlayerNotFound, key+" is not seated")
	}
	s.LastSeen[key] = now

	p := &s.Players[idx]
	if online {
		p.IdleWarning = false
	}
	if p.Online == online {
		return nil, nil
	}
	p.Online = online

	if online {
		return []events.Event{events.New(events.TypeOnline, key, p.DisplayName+" came online")}, nil
	}

	evs := []events.Event{events.New(events.TypeOffline, key, p.DisplayName+" went offline")}
	if done, doneEvs := s.completeIfSoleHolder(); done {
		return append(evs, doneEvs...), nil
	}
	if idx == s.TurnIndex && s.Status == StatusActive {
		if changed := s.passTurnFrom(idx, now); changed {
			next := s.CurrentPlayer()
			evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn to draw"))
		}
	}
	return evs, nil
}

// passTurnFrom moves the turn to the next holder after idx, online holders
// first. Reports whether the holder changed.
func (s *Session) passTurnFrom(idx int, now time.Time) bool {
	next := turn.Advance(seats(s.Players), idx, true)
	if next == -1 {
		next = turn.Advance(seats(s.Players), idx, false)
	}
	if next == -1 || next == s.TurnIndex {
		return false
	}
	s.TurnIndex = next
	s.TurnStartedAt = now
	return true
}

// PruneStale removes players whose last heartbeat exceeds the threshold for
// the current status, flagging active players with an idle warning as they
// approach the cutoff. Removal renormalizes the turn index and can complete
// an active game when a single holder remains.
func (s *Session) PruneStale(now time.Time) ([]events.Event, int) {
	if s.Status == StatusComplete {
		return nil, 0
	}
	threshold := WaitingStale
	if s.Status == StatusActive {
		threshold = ActiveStale
	}

	var evs []events.Event
	var kept []Player
	removed := 0
	holder := ""
	if cur := s.CurrentPlayer(); cur != nil {
		holder = cur.Name
	}

	for i := range s.Players {
		p := &s.Players[i]
		seen, ok := s.LastSeen[p.Name]
		if !ok {
			s.LastSeen[p.Name] = now
			seen = now
		}
		idle := now.Sub(seen)
		if idle > threshold {
			removed++
			delete(s.LastSeen, p.Name)
			evs = append(evs, events.New(events.TypePruned, p.Name, p.DisplayName+" timed out and left the table"))
			continue
		}
		if s.Status == StatusActive && idle > threshold-IdleWarningWindow && !p.IdleWarning {
			p.IdleWarning = true
			evs = append(evs, events.New(events.TypeIdleWarning, p.Name, p.DisplayName+" is about to time out"))
		}
		kept = append(kept, *p)
	}
	if removed == 0 {
		return evs, 0
	}
	s.Players = kept

	// An active game whose holders all timed out has been abandoned. Fold
	// it back to a waiting lobby so new entrants are not refused against a
	// game nobody is playing.
	if s.Status == StatusActive && len(s.holders()) == 0 {
		s.Status = StatusWaiting
		s.TurnIndex = -1
		s.TurnStartedAt = time.Time{}
		s.Loser = ""
		s.Lock = nil
		for i := range s.Players {
			p := &s.Players[i]
			p.Hand = nil
			p.Discards = nil
			p.Safe = false
			p.IdleWarning = false
		}
		return append(evs, events.New(events.TypeReset, "", "abandoned game cleared; waiting for players")), removed
	}

	if done, doneEvs := s.completeIfSoleHolder(); done {
		return append(evs, doneEvs...), removed
	}

	if s.Status == StatusActive {
		preferred := 0
		if holder != "" {
			if i := s.playerIndex(holder); i >= 0 {
				preferred = i
			} else if s.TurnIndex >= 0 && s.TurnIndex < len(s.Players) {
				preferred = s.TurnIndex
			}
		}
		idx := turn.Ensure(seats(s.Players), preferred, true)
		if idx == -1 {
			idx = turn.Ensure(seats(s.Players), preferred, false)
		}
		if idx != -1 && idx != s.TurnIndex {
			s.TurnIndex = idx
			s.TurnStartedAt = now
			if next := s.CurrentPlayer(); next.Name != holder {
				evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn to draw"))
			}
		} else if idx != -1 {
			s.TurnIndex = idx
		}
	}
	return evs, removed
}

// HangResult reports the outcome of a hang-resolution request.
type HangResult struct {
	Resolved  bool   `json:"resolved"`
	Forfeited string `json:"forfeited,omitempty"`
	Holder    string `json:"holder,omitempty"`
}

// ResolveHang forfeits the current holder's turn when they are offline or
// have sat past the hang timeout, provided another online holder can take
// over. Any seated player may call it.
func (s *Session) ResolveHang(key string, now time.Time) (*HangResult, []events.Event, error) {
	if s.playerIndex(key) == -1 {
		return nil, nil, fault.New(fault.PlayerNotFound, key+" is not seated")
	}
	if s.Status != StatusActive {
		return &HangResult{}, nil, nil
	}
	cur := s.CurrentPlayer()
	if cur == nil {
		return &HangResult{}, nil, nil
	}

	stuck := !cur.Online || turn.Hung(s.TurnStartedAt, now)
	if !stuck {
		return &HangResult{Holder: cur.Name}, nil, nil
	}

	hasOther := false
	for i := range s.Players {
		if i != s.TurnIndex && s.Players[i].Online && s.Players[i].HasCards() {
			hasOther = true
			break
		}
	}
	if !hasOther {
		return &HangResult{Holder: cur.Name}, nil, nil
	}

	forfeited := cur.Name
	evs := []events.Event{events.New(events.TypeForfeit, forfeited, cur.DisplayName+"'s turn was forfeited")}
	s.passTurnFrom(s.TurnIndex, now)
	next := s.CurrentPlayer()
	evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn to draw"))

	return &HangResult{Resolved: true, Forfeited: forfeited, Holder: next.Name}, evs, nil
}
