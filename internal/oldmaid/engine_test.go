package oldmaid

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tclemens/cardtable/internal/deck"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newLobby(t *testing.T, players ...string) *Session {
	t.Helper()
	s := NewSession(t0)
	for _, name := range players {
		_, err := s.Join(name, name, t0)
		require.NoError(t, err)
	}
	return s
}

func newDealt(t *testing.T, seed int64, players ...string) *Session {
	t.Helper()
	s := newLobby(t, players...)
	_, err := s.StartGame(players[0], rand.New(rand.NewSource(seed)), t0)
	require.NoError(t, err)
	return s
}

// assertConservation checks Σ|hand| + 2·Σ|discard pairs| against the 52-card
// deal (51 ranked + Joker).
func assertConservation(t *testing.T, s *Session) {
	t.Helper()
	total := 0
	jokers := 0
	for _, p := range s.Players {
		total += len(p.Hand) + 2*len(p.Discards)
		for _, c := range p.Hand {
			if c.IsJoker() {
				jokers++
			}
		}
	}
	assert.Equal(t, 52, total, "hand/discard conservation broken")
	if s.Status == StatusActive {
		assert.LessOrEqual(t, jokers, 1, "at most one joker in circulation")
	}
}

func TestReducePairs(t *testing.T) {
	hand := []deck.Card{
		deck.New(3, deck.SuitClubs),
		deck.New(3, deck.SuitDiamonds),
		deck.New(deck.RankJoker, ""),
	}
	kept, pairs := reducePairs(hand)
	require.Len(t, kept, 1)
	assert.True(t, kept[0].IsJoker(), "the joker never pairs")
	require.Len(t, pairs, 1)
	assert.Equal(t, 3, pairs[0][0].Rank)
	assert.Equal(t, 3, pairs[0][1].Rank)
}

func TestReducePairsTriple(t *testing.T) {
	hand := []deck.Card{
		deck.New(7, deck.SuitClubs),
		deck.New(7, deck.SuitDiamonds),
		deck.New(7, deck.SuitHearts),
		deck.New(2, deck.SuitSpades),
	}
	kept, pairs := reducePairs(hand)
	require.Len(t, pairs, 1, "three of a kind lays down one pair")
	require.Len(t, kept, 2)
	assert.Equal(t, 7, kept[0].Rank, "the odd seven survives in order")
	assert.Equal(t, 2, kept[1].Rank)
}

func TestDealReducesAndPicksStarter(t *testing.T) {
	s := newDealt(t, 11, "ann", "bob", "cat")
	assert.Equal(t, StatusActive, s.Status)
	assertConservation(t, s)

	for _, p := range s.Players {
		assert.Equal(t, len(p.Hand) == 0, p.Safe)
	}
	cur := s.CurrentPlayer()
	require.NotNil(t, cur)
	assert.True(t, cur.HasCards(), "starting turn goes to a player with cards")
}

func TestStartGameNeedsTwoOnline(t *testing.T) {
	s := newLobby(t, "ann")
	_, err := s.StartGame("ann", rand.New(rand.NewSource(1)), t0)
	assert.Equal(t, fault.NotEnoughPlayers, fault.CodeOf(err))

	s = newLobby(t, "ann", "bob")
	s.Players[1].Online = false
	_, err = s.StartGame("ann", rand.New(rand.NewSource(1)), t0)
	assert.Equal(t, fault.NotEnoughPlayers, fault.CodeOf(err))
}

// TestDrawJokerScenario is the scripted two-player endgame: ann holds only
// the Joker after pairing her threes, bob holds 7♥. Bob draws the Joker;
// ann empties out safe, bob becomes the sole holder and loses.
func TestDrawJokerScenario(t *testing.T) {
	s := newDealt(t, 1, "ann", "bob")
	s.Players[0].Hand = []deck.Card{deck.New(deck.RankJoker, "")}
	s.Players[0].Discards = [][2]deck.Card{{deck.New(3, deck.SuitClubs), deck.New(3, deck.SuitDiamonds)}}
	s.Players[0].Safe = false
	s.Players[1].Hand = []deck.Card{deck.New(7, deck.SuitHearts)}
	s.Players[1].Discards = nil
	s.TurnIndex = 1 // bob to draw

	pos := 0
	res, evs, err := s.Draw("bob", &pos, rand.New(rand.NewSource(1)), t0)
	require.NoError(t, err)

	assert.True(t, res.Card.IsJoker())
	assert.Equal(t, "ann", res.From)
	assert.True(t, s.Players[0].Safe)
	assert.Empty(t, s.Players[0].Hand)

	assert.True(t, res.Complete)
	assert.Equal(t, "bob", res.Loser)
	assert.Equal(t, StatusComplete, s.Status)
	assert.Equal(t, "bob", s.Loser)

	var sawGameOver bool
	for _, ev := range evs {
		if ev.Type == events.TypeGameOver {
			sawGameOver = true
		}
	}
	assert.True(t, sawGameOver)
}

func TestDrawValidation(t *testing.T) {
	s := newDealt(t, 5, "ann", "bob")
	rng := rand.New(rand.NewSource(5))
	cur := s.CurrentPlayer().Name
	other := "ann"
	if cur == "ann" {
		other = "bob"
	}

	_, _, err := s.Draw("ghost", nil, rng, t0)
	assert.Equal(t, fault.PlayerNotFound, fault.CodeOf(err))

	_, _, err = s.Draw(other, nil, rng, t0)
	assert.Equal(t, fault.NotYourTurn, fault.CodeOf(err))

	lobby := newLobby(t, "ann", "bob")
	_, _, err = lobby.Draw("ann", nil, rng, t0)
	assert.Equal(t, fault.InvalidSession, fault.CodeOf(err))
}

func TestDrawStalePositionFallsBackToRandom(t *testing.T) {
	s := newDealt(t, 9, "ann", "bob")
	cur := s.TurnIndex
	target := (cur + 1) % 2
	targetBefore := len(s.Players[target].Hand)

	pos := 999 // stale index from a concurrent change
	res, _, err := s.Draw(s.Players[cur].Name, &pos, rand.New(rand.NewSource(9)), t0)
	require.NoError(t, err)
	assert.Equal(t, s.Players[target].Name, res.From)
	assert.Len(t, s.Players[target].Hand, targetBefore-1)
	assertConservation(t, s)
}

func TestDrawPassesTurnToNextHolder(t *testing.T) {
	s := newDealt(t, 21, "ann", "bob", "cat")
	cur := s.TurnIndex

	res, _, err := s.Draw(s.Players[cur].Name, nil, rand.New(rand.NewSource(21)), t0)
	require.NoError(t, err)
	if res.Complete {
		t.Skip("seed ended the game on the first draw")
	}
	next := s.CurrentPlayer()
	require.NotNil(t, next)
	assert.True(t, next.HasCards(), "turn must land on a holder")
	assert.Equal(t, res.NextPlayer, next.Name)
}

func TestShuffleLockArbitration(t *testing.T) {
	s := newDealt(t, 2, "ann", "bob")
	rng := rand.New(rand.NewSource(2))
	holder := ""
	for _, p := range s.Players {
		if len(p.Hand) >= 2 {
			holder = p.Name
			break
		}
	}
	require.NotEmpty(t, holder)

	evs, err := s.ShuffleHand(holder, rng, t0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.NotNil(t, s.Lock)
	assert.Equal(t, holder, s.Lock.Player)

	// Lock held: concurrent shuffle is refused rather than interleaved.
	_, err = s.ShuffleHand(holder, rng, t0.Add(time.Second))
	assert.Equal(t, fault.ShuffleLocked, fault.CodeOf(err))

	// Expired lock no longer blocks.
	_, err = s.ShuffleHand(holder, rng, t0.Add(ShuffleLockTTL+time.Second))
	require.NoError(t, err)

	assert.True(t, s.ClearShuffleLock(holder))
	assert.Nil(t, s.Lock)
	assert.False(t, s.ClearShuffleLock(holder))
}

// TestFullGameConservation plays randomized full games and checks the
// conservation invariant and termination on every step.
func TestFullGameConservation(t *testing.T) {
	for _, seed := range []int64{3, 17, 99} {
		s := newDealt(t, seed, "ann", "bob", "cat", "dan")
		rng := rand.New(rand.NewSource(seed))
		now := t0
		assertConservation(t, s)

		for steps := 0; s.Status == StatusActive; steps++ {
			require.Less(t, steps, 500, "game must terminate (seed %d)", seed)
			cur := s.CurrentPlayer()
			require.NotNil(t, cur)
			now = now.Add(time.Second)
			_, _, err := s.Draw(cur.Name, nil, rng, now)
			require.NoError(t, err)
			assertConservation(t, s)
		}

		require.Equal(t, StatusComplete, s.Status)
		require.NotEmpty(t, s.Loser)
		// The loser is stuck with the Joker.
		loser := s.Players[s.playerIndex(s.Loser)]
		hasJoker := false
		for _, c := range loser.Hand {
			if c.IsJoker() {
				hasJoker = true
			}
		}
		assert.True(t, hasJoker, "sole holder must be stuck with the joker (seed %d)", seed)
	}
}
