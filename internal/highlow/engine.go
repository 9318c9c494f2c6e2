package highlow

import (
	"fmt"
	"time"

	"github.com/tclemens/cardtable/internal/deck"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
)

// GuessResult reports everything a guess revealed.
type GuessResult struct {
	Drawn      []deck.Card `json:"drawn"`
	PileID     string      `json:"pileId"`
	PileFaceUp bool        `json:"pileFaceUp"`
	Correct    bool        `json:"correct"`
	DeckSize   int         `json:"deckSize"`
	NextPlayer string      `json:"nextPlayer,omitempty"`
	Outcome    Outcome     `json:"outcome,omitempty"`
}

// MakeGuess resolves one declared guess against a pile.
//
// The draw loop pops deck cards onto the pile until a card of a different
// rank than the previous top appears: ties carry no information, stay
// face-up on the pile, and never end the turn or alter the declared guess.
// The first non-tied card decides; if the deck runs dry mid-tie the guess
// counts as correct by convention, there being no card to contradict it.
func (s *Session) MakeGuess(key string, guess Guess, pileID string, now time.Time) (*GuessResult, []events.Event, error) {
	if guess != GuessHigher && guess != GuessLower {
		return nil, nil, fault.New(fault.InvalidGuess, "guess must be higher or lower")
	}
	if s.Status == StatusComplete {
		return nil, nil, fault.New(fault.SessionComplete, "game is over")
	}

	idx := s.playerIndex(key)
	if idx == -1 {
		return nil, nil, fault.New(fault.PlayerNotFound, key+" is not at the table")
	}
	p := &s.Players[idx]
	if !p.Active {
		return nil, nil, fault.New(fault.PlayerInactive, key+" is out of the game")
	}
	if !p.Online {
		return nil, nil, fault.New(fault.PlayerOffline, key+" is offline")
	}
	if idx != s.TurnIndex {
		return nil, nil, fault.New(fault.NotYourTurn, "it is not your turn")
	}

	var pile *Pile
	for i := range s.Piles {
		if s.Piles[i].ID == pileID {
			pile = &s.Piles[i]
			break
		}
	}
	if pile == nil {
		return nil, nil, fault.New(fault.InvalidPile, "no such pile: "+pileID)
	}
	if !pile.FaceUp {
		return nil, nil, fault.New(fault.PileLocked, pileID+" is locked")
	}
	prev, ok := pile.Top()
	if !ok {
		return nil, nil, fault.New(fault.PileEmpty, pileID+" has no cards")
	}
	if len(s.Deck) == 0 {
		return nil, nil, fault.New(fault.DeckEmpty, "the deck is exhausted")
	}

	if s.Status == StatusWaiting {
		s.Status = StatusActive
	}

	// Tie-break draw loop.
	var drawn []deck.Card
	resolved := false
	for len(s.Deck) > 0 {
		card := s.Deck[len(s.Deck)-1]
		s.Deck = s.Deck[:len(s.Deck)-1]
		pile.Cards = append(pile.Cards, card)
		drawn = append(drawn, card)
		if card.Rank != prev.Rank {
			resolved = true
			break
		}
		prev = card
	}

	correct := true
	if resolved {
		final := drawn[len(drawn)-1]
		if guess == GuessHigher {
			correct = final.Rank > prev.Rank
		} else {
			correct = final.Rank < prev.Rank
		}
		if !correct {
			pile.FaceUp = false
		}
	}

	evs := []events.Event{guessEvent(p, guess, pile, drawn, correct)}

	// Win/loss check, then turn advancement for an ongoing game.
	switch {
	case s.openPiles() == 0:
		s.Status = StatusComplete
		s.Outcome = OutcomeDeck
		evs = append(evs, events.New(events.TypeGameOver, "", "every pile is locked — the deck wins"))
	case len(s.Deck) == 0:
		s.Status = StatusComplete
		s.Outcome = OutcomePlayers
		evs = append(evs, events.New(events.TypeGameOver, "", "the deck is out of cards — the players win"))
	default:
		s.advanceTurn(now)
		if next := s.CurrentPlayer(); next != nil && next.Name != key {
			evs = append(evs, events.New(events.TypeTurn, next.Name, next.DisplayName+"'s turn"))
		}
	}

	res := &GuessResult{
		Drawn:      drawn,
		PileID:     pile.ID,
		PileFaceUp: pile.FaceUp,
		Correct:    correct,
		DeckSize:   len(s.Deck),
		Outcome:    s.Outcome,
	}
	if s.Status != StatusComplete {
		if next := s.CurrentPlayer(); next != nil {
			res.NextPlayer = next.Name
		}
	}
	return res, evs, nil
}

func guessEvent(p *Player, guess Guess, pile *Pile, drawn []deck.Card, correct bool) events.Event {
	verdict := "wrong"
	if correct {
		verdict = "right"
	}
	labels := make([]string, len(drawn))
	for i, c := range drawn {
		labels[i] = c.Label
	}
	msg := fmt.Sprintf("%s guessed %s on %s and was %s", p.DisplayName, guess, pile.ID, verdict)
	return events.New(events.TypeGuess, p.Name, msg).WithPayload(map[string]any{
		"pile":    pile.ID,
		"guess":   string(guess),
		"drawn":   labels,
		"correct": correct,
		"locked":  !pile.FaceUp,
	})
}
