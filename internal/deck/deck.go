// Package deck provides the card value type and deck construction shared by
// both game engines. Cards are immutable JSON-friendly values; a session
// document stores them verbatim.
package deck

import "math/rand"

// Rank constants. Aces are low; rank 0 is reserved for the Joker.
const (
	RankJoker = 0
	RankAce   = 1
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13
)

// Suit symbols as stored in session documents.
const (
	SuitHearts   = "♥"
	SuitDiamonds = "♦"
	SuitClubs    = "♣"
	SuitSpades   = "♠"
	SuitJoker    = "★"
)

// Suits lists the four standard suits in deal order.
var Suits = []string{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

var rankNames = [14]string{"JOKER", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card is a single playing card. Rank runs 1..13 with Ace low; the Joker is
// rank 0 and belongs to no suit.
type Card struct {
	Rank  int    `json:"rank"`
	Suit  string `json:"suit"`
	Label string `json:"label"`
}

// New builds a card, deriving its display label.
func New(rank int, suit string) Card {
	if rank == RankJoker {
		return Card{Rank: RankJoker, Suit: SuitJoker, Label: "JOKER"}
	}
	return Card{Rank: rank, Suit: suit, Label: rankNames[rank] + suit}
}

// IsJoker reports whether the card is the Joker.
func (c Card) IsJoker() bool { return c.Rank == RankJoker }

// Standard returns the ordered 52-card deck.
func Standard() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for rank := RankAce; rank <= RankKing; rank++ {
			cards = append(cards, New(rank, suit))
		}
	}
	return cards
}

// OldMaid returns the ordered Old Maid deck: the standard 52 minus the queen
// of spades, plus the Joker. 52 cards total, 51 ranked.
func OldMaid() []Card {
	cards := make([]Card, 0, 52)
	for _, c := range Standard() {
		if c.Rank == RankQueen && c.Suit == SuitSpades {
			continue
		}
		cards = append(cards, c)
	}
	return append(cards, New(RankJoker, SuitJoker))
}

// Shuffle permutes cards in place using the supplied source.
func Shuffle(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
