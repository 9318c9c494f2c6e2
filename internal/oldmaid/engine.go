package oldmaid

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tclemens/cardtable/internal/deck"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
	"github.com/tclemens/cardtable/internal/turn"
)

// reducePairs removes every equal-rank pair from hand, preserving the order
// of the survivors. The Joker never pairs. Returns the reduced hand and the
// pairs laid down.
func reducePairs(hand []deck.Card) ([]deck.Card, [][2]deck.Card) {
	counts := make(map[int]int)
	for _, c := range hand {
		if !c.IsJoker() {
			counts[c.Rank]++
		}
	}

	// How many cards of each rank leave the hand.
	drop := make(map[int]int)
	for rank, n := range counts {
		drop[rank] = (n / 2) * 2
	}

	var kept []deck.Card
	buckets := make(map[int][]deck.Card)
	for _, c := range hand {
		if !c.IsJoker() && drop[c.Rank] > 0 {
			drop[c.Rank]--
			buckets[c.Rank] = append(buckets[c.Rank], c)
			continue
		}
		kept = append(kept, c)
	}

	var pairs [][2]deck.Card
	for _, cards := range buckets {
		for i := 0; i+1 < len(cards); i += 2 {
			pairs = append(pairs, [2]deck.Card{cards[i], cards[i+1]})
		}
	}
	return kept, pairs
}

// deal reseats the online players and distributes a fresh Old Maid deck
// round-robin, reducing every hand immediately. The starting turn goes to
// the first player left holding cards.
func (s *Session) deal(rng *rand.Rand, now time.Time) ([]events.Event, error) {
	var seated []Player
	for _, p := range s.Players {
		if p.Online {
			seated = append(seated, Player{
				Name:        p.Name,
				DisplayName: p.DisplayName,
				Online:      true,
			})
		}
	}
	if len(seated) < MinPlayers {
		return nil, fault.New(fault.NotEnoughPlayers, "need at least two online players")
	}
	if len(seated) > 52 {
		return nil, fault.New(fault.NotEnoughCards, "too many players for one deck")
	}

	cards := deck.OldMaid()
	deck.Shuffle(cards, rng)
	for i, c := range cards {
		p := &seated[i%len(seated)]
		p.Hand = append(p.Hand, c)
	}

	evs := []events.Event{events.New(events.TypeGameStart, "", "cards are dealt — find the pairs, dodge the joker")}
	for i := range seated {
		p := &seated[i]
		var pairs [][2]deck.Card
		p.Hand, pairs = reducePairs(p.Hand)
		p.Discards = pairs
		p.Safe = len(p.Hand) == 0
		if len(pairs) > 0 {
			evs = append(evs, events.New(events.TypePair, p.Name,
				fmt.Sprintf("%s laid down %d pair(s)", p.DisplayName, len(pairs))))
		}
	}

	s.Players = seated
	s.Status = StatusActive
	s.Loser = ""
	s.Lock = nil
	s.LastSeen = map[string]time.Time{}
	for _, p := range seated {
		s.LastSeen[p.Name] = now
	}

	s.TurnIndex = turn.Ensure(seats(s.Players), 0, false)
	s.TurnStartedAt = now
	if cur := s.CurrentPlayer(); cur != nil {
		evs = append(evs, events.New(events.TypeTurn, cur.Name, cur.DisplayName+" draws first"))
	}
	return evs, nil
}

// DrawResult reports one completed draw.
type DrawResult struct {
	From       string    `json:"from"`
	Card       deck.Card `json:"card"`
	PairsMade  int       `json:"pairsMade"`
	Safe       bool      `json:"safe"`
	NextPlayer string    `json:"nextPlayer,omitempty"`
	Loser      string    `json:"loser,omitempty"`
	Complete   bool      `json:"complete"`
}

// Draw takes one card from the next holder after the caller. cardPos is the
// client's pre-selected face-down index into the target's hand; when absent
// or stale (out of range after a concurrent change) a random index is drawn
// instead. New pairs are laid down immediately; if exactly one player still
// holds cards afterwards they are the loser and the game completes.
func (s *Session) Draw(key string, cardPos *int, rng *rand.Rand, now time.Time) (*DrawResult, []events.Event, error) {
	switch s.Status {
	case StatusComplete:
		return nil, nil, fault.New(fault.SessionComplete, "game is over")
	case StatusWaiting:
		return nil, nil, fault.New(fault.InvalidSession, "no game in progress")
	}

	idx := s.playerIndex(key)
	if idx == -1 {
		return nil, nil, fault.New(fault.PlayerNotFound, key+" is not seated")
	}
	caller := &s.Players[idx]
	if !caller.Online {
		return nil, nil, fault.New(fault.PlayerOffline, key+" is offline")
	}
	if idx != s.TurnIndex {
		return nil, nil, fault.New(fault.NotYourTurn, "it is not your turn")
	}

	// Target: the next player after the caller, scanning circularly, who
	// still holds cards.
	n := len(s.Players)
	targetIdx := -1
	for off := 1; off < n; off++ {
		j := (idx + off) % n
		if s.Players[j].HasCards() {
			targetIdx = j
			break
		}
	}
	if targetIdx == -1 {
		return nil, nil, fault.New(fault.NoTarget, "nobody left to draw from")
	}
	target := &s.Players[targetIdx]

	pos := rng.Intn(len(target.Hand))
	if cardPos != nil && *cardPos >= 0 && *cardPos < len(target.Hand) {
		pos = *cardPos
	}

	card := target.Hand[pos]
	target.Hand = append(target.Hand[:pos], target.Hand[pos+1:]...)
	target.Safe = len(target.Hand) == 0

	caller.Hand = append(caller.Hand, card)
	var pairs [][2]deck.Card
	caller.Hand, pairs = reducePairs(caller.Hand)
	caller.Discards = append(caller.Discards, pairs...)
	caller.Safe = len(caller.Hand) == 0

	evs := []events.Event{events.New(events.TypeDraw, key,
		fmt.Sprintf("%s drew a card from %s", caller.DisplayName, target.DisplayName)).WithPayload(map[string]any{
		"from":      target.Name,
		"handSize":  len(caller.Hand),
		"pairsMade": len(pairs),
	})}
	if len(pairs) > 0 {
		evs = append(evs, events.New(events.TypePair, key,
			fmt.Sprintf("%s laid down %d pair(s)", caller.DisplayName, len(pairs))))
	}

	res := &DrawResult{
		From:      target.Name,
		Card:      card,
		PairsMade: len(pairs),
		Safe:      caller.Safe,
	}

	if done, doneEvs := s.completeIfSoleHolder(); done {
		res.Complete = true
		res.Loser = s.Loser
		return res, append(evs, doneEvs...), nil
	}

	// Turn passes along the table: the next holder after the caller, online
	// holders preferred. The drawer only goes again when everyone else is
	// safe.
	next := turn.Advance(seats(s.Players), idx, true)
	if next == -1 {
		next = turn.Advance(seats(s.Players), idx, false)
	}
	if next != -1 {
		s.TurnIndex = next
		s.TurnStartedAt = now
		np := &s.Players[next]
		res.NextPlayer = np.Name
		evs = append(evs, events.New(events.TypeTurn, np.Name, np.DisplayName+"'s turn to draw"))
	}
	return res, evs, nil
}

// completeIfSoleHolder applies the sole completion predicate: exactly one
// player still holding cards loses. Used after draws and after any presence
// change that can strand a holder — disconnecting is never a way to dodge
// the loss.
func (s *Session) completeIfSoleHolder() (bool, []events.Event) {
	if s.Status != StatusActive {
		return false, nil
	}
	h := s.holders()
	if len(h) != 1 {
		return false, nil
	}
	loser := &s.Players[h[0]]
	s.Status = StatusComplete
	s.Loser = loser.Name
	s.TurnIndex = h[0]
	s.Lock = nil
	return true, []events.Event{events.New(events.TypeGameOver, loser.Name,
		loser.DisplayName+" is stuck with the last hand — old maid!")}
}

// ShuffleHand randomly permutes the caller's hand under the advisory TTL
// lock. A request while an unexpired lock exists is rejected with
// shuffle_locked instead of interleaving.
func (s *Session) ShuffleHand(key string, rng *rand.Rand, now time.Time) ([]events.Event, error) {
	if s.Status != StatusActive {
		return nil, fault.New(fault.InvalidSession, "no game in progress")
	}
	idx := s.playerIndex(key)
	if idx == -1 {
		return nil, fault.New(fault.PlayerNotFound, key+" is not seated")
	}
	p := &s.Players[idx]
	if len(p.Hand) < 2 {
		return nil, fault.New(fault.NotEnoughCards, "nothing to shuffle")
	}
	if s.Lock != nil && s.Lock.ExpiresAt.After(now) {
		return nil, fault.New(fault.ShuffleLocked, "another shuffle is in flight")
	}

	deck.Shuffle(p.Hand, rng)
	s.Lock = &ShuffleLock{Player: key, ExpiresAt: now.Add(ShuffleLockTTL)}
	return []events.Event{events.New(events.TypeShuffle, key, p.DisplayName+" shuffled their hand")}, nil
}

// ClearShuffleLock releases the lock if key still holds it. Called by the
// action surface once the shuffle's effect has been recorded; an expired or
// stolen lock is left alone.
func (s *Session) ClearShuffleLock(key string) bool {
	if s.Lock == nil || s.Lock.Player != key {
		return false
	}
	s.Lock = nil
	return true
}
