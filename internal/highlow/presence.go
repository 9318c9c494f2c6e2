package highlow

import (
	"time"

	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
	"github.com/tclemens/cardtable/internal/turn"
)

// ReportPresence records a heartbeat. Repeated reports with an unchanged
// flag only refresh the timestamp and stay silent. A transition to offline
// by the turn holder hands the turn to the next online player immediately.
func (s *Session) ReportPresence(key string, online bool, now time.Time) ([]events.Event, error) {
	idx := s.playerIndex(key)
	if idx == -1 {
		return nil, fault.New(fault.PlayerNotFound, key+" is not at the table")
	}
	s.LastSeen[key] = now

	p := &s.Players[idx]
	if p.Online == online {
		return nil, nil
	}
	p.Online = online

	if online {
		return []events.Event{events.New(events.TypeOnline, key, p.DisplayName+" came online")}, nil
	}

	evs := []events.Event{events.New(events.TypeOffline, key, p.DisplayName+" went offline")}
	if idx == s.TurnIndex && s.Status != StatusComplete {
		if s.ensureTurn(s.TurnIndex, now) {
			next := s.CurrentPlayer()
			evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn"))
		}
	}
	return evs, nil
}

// PruneStale removes every player whose last heartbeat is older than the
// staleness threshold, renormalizing the turn index. Returns the events plus
// how many players were removed. Invoked opportunistically at the start of
// every transaction.
func (s *Session) PruneStale(now time.Time) ([]events.Event, int) {
	var evs []events.Event
	var kept []Player
	removed := 0
	holder := ""
	if cur := s.CurrentPlayer(); cur != nil {
		holder = cur.Name
	}

	for _, p := range s.Players {
		seen, ok := s.LastSeen[p.Name]
		if !ok {
			// No heartbeat recorded yet; grant a full window from now.
			s.LastSeen[p.Name] = now
			seen = now
		}
		if now.Sub(seen) > StaleAfter {
			removed++
			delete(s.LastSeen, p.Name)
			evs = append(evs, events.New(events.TypePruned, p.Name, p.DisplayName+" timed out and left the table"))
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return nil, 0
	}
	s.Players = kept

	// Re-point the turn at the previous holder when they survived, else the
	// next eligible seat from the same position.
	preferred := 0
	if holder != "" {
		if i := s.playerIndex(holder); i >= 0 {
			preferred = i
		} else if s.TurnIndex < len(s.Players) && s.TurnIndex >= 0 {
			preferred = s.TurnIndex
		}
	}
	s.TurnIndex = -1
	if s.ensureTurn(preferred, now) {
		if next := s.CurrentPlayer(); next != nil && next.Name != holder {
			evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn"))
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

// ResolveHang forfeits the current holder's turn when they are inactive,
// offline, or have sat on the turn past the hang timeout — provided another
// online active player exists to receive it. Any seated player may call it;
// it is a liveness check, not a privilege.
func (s *Session) ResolveHang(key string, now time.Time) (*HangResult, []events.Event, error) {
	if s.playerIndex(key) == -1 {
		return nil, nil, fault.New(fault.PlayerNotFound, key+" is not at the table")
	}
	if s.Status == StatusComplete {
		return &HangResult{}, nil, nil
	}
	cur := s.CurrentPlayer()
	if cur == nil {
		return &HangResult{}, nil, nil
	}

	stuck := !cur.Active || !cur.Online || turn.Hung(s.TurnStartedAt, now)
	if !stuck {
		return &HangResult{Holder: cur.Name}, nil, nil
	}

	// Someone other than the holder must be ready to play.
	hasOther := false
	for i := range s.Players {
		if i != s.TurnIndex && s.Players[i].Active && s.Players[i].Online {
			hasOther = true
			break
		}
	}
	if !hasOther {
		return &HangResult{Holder: cur.Name}, nil, nil
	}

	forfeited := cur.Name
	evs := []events.Event{events.New(events.TypeForfeit, forfeited, cur.DisplayName+"'s turn was forfeited")}
	s.advanceTurn(now)
	next := s.CurrentPlayer()
	evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn"))

	return &HangResult{Resolved: true, Forfeited: forfeited, Holder: next.Name}, evs, nil
}
