package deck

import (
	"math/rand"
	"testing"
)

// TestStandardDeck verifies the standard deck holds 52 unique cards.
func TestStandardDeck(t *testing.T) {
	cards := Standard()
	if len(cards) != 52 {
		t.Fatalf("len = %d, want 52", len(cards))
	}

	seen := make(map[Card]bool)
	for i, c := range cards {
		if c.Rank < RankAce || c.Rank > RankKing {
			t.Errorf("card %d: rank %d out of range", i, c.Rank)
		}
		if seen[c] {
			t.Errorf("duplicate card %s", c.Label)
		}
		seen[c] = true
	}
}

// TestOldMaidDeck verifies the Old Maid deck: 51 ranked cards plus one Joker,
// with exactly three queens.
func TestOldMaidDeck(t *testing.T) {
	cards := OldMaid()
	if len(cards) != 52 {
		t.Fatalf("len = %d, want 52", len(cards))
	}

	jokers, queens := 0, 0
	for _, c := range cards {
		switch {
		case c.IsJoker():
			jokers++
		case c.Rank == RankQueen:
			queens++
		}
	}
	if jokers != 1 {
		t.Errorf("jokers = %d, want 1", jokers)
	}
	if queens != 3 {
		t.Errorf("queens = %d, want 3", queens)
	}
	for _, c := range cards {
		if c.Rank == RankQueen && c.Suit == SuitSpades {
			t.Error("queen of spades should be removed")
		}
	}
}

// TestLabels spot-checks display labels.
func TestLabels(t *testing.T) {
	cases := []struct {
		rank int
		suit string
		want string
	}{
		{RankAce, SuitHearts, "A♥"},
		{5, SuitDiamonds, "5♦"},
		{10, SuitClubs, "10♣"},
		{RankKing, SuitSpades, "K♠"},
		{RankJoker, "", "JOKER"},
	}
	for _, tc := range cases {
		if got := New(tc.rank, tc.suit).Label; got != tc.want {
			t.Errorf("New(%d, %q).Label = %q, want %q", tc.rank, tc.suit, got, tc.want)
		}
	}
}

// TestShuffleConservation verifies shuffling preserves the multiset.
func TestShuffleConservation(t *testing.T) {
	cards := Standard()
	rng := rand.New(rand.NewSource(42))
	Shuffle(cards, rng)

	counts := make(map[Card]int)
	for _, c := range cards {
		counts[c]++
	}
	for _, c := range Standard() {
		if counts[c] != 1 {
			t.Errorf("card %s count = %d after shuffle, want 1", c.Label, counts[c])
		}
	}
}
