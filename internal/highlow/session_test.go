package highlow

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
	"github.com/tclemens/cardtable/internal/turn"
)

func TestJoinAndRejoin(t *testing.T) {
	s := newTestSession(t)

	evs := s.Join("ann", "Ann", t0)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeJoin, evs[0].Type)
	assert.Equal(t, 0, s.TurnIndex, "first join claims the turn")

	// Same canonical name reconnecting: no duplicate seat.
	s.Players[0].Online = false
	evs = s.Join("ann", "Annie", t0.Add(time.Minute))
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeRejoin, evs[0].Type)
	require.Len(t, s.Players, 1)
	assert.Equal(t, "Annie", s.Players[0].DisplayName)
	assert.True(t, s.Players[0].Online)

	// Joining while already online is a no-op heartbeat.
	evs = s.Join("ann", "", t0.Add(2*time.Minute))
	assert.Empty(t, evs)
	require.Len(t, s.Players, 1)
}

func TestReportPresenceIdempotent(t *testing.T) {
	s := newTestSession(t, "ann")

	evs, err := s.ReportPresence("ann", true, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, evs, "unchanged flag refreshes timestamp only")
	assert.Equal(t, t0.Add(time.Second), s.LastSeen["ann"])

	evs, err = s.ReportPresence("ann", false, t0.Add(2*time.Second))
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeOffline, evs[0].Type)

	// Two offline reports in a row: one event total.
	evs, err = s.ReportPresence("ann", false, t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.Empty(t, evs)

	_, err = s.ReportPresence("ghost", true, t0)
	assert.Equal(t, fault.PlayerNotFound, fault.CodeOf(err))
}

// TestOfflineHolderAdvancesTurn is the scripted scenario: the turn holder
// reports offline and the turn moves to the next active online player with a
// turn event queued.
func TestOfflineHolderAdvancesTurn(t *testing.T) {
	s := newTestSession(t, "ann", "bob")
	require.Equal(t, 0, s.TurnIndex)

	evs, err := s.ReportPresence("ann", false, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, s.TurnIndex, "turn must pass to bob")

	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeOffline, evs[0].Type)
	assert.Equal(t, events.TypeTurn, evs[1].Type)
	assert.Equal(t, "bob", evs[1].Player)
}

func TestOfflineSoleHolderKeepsIndex(t *testing.T) {
	s := newTestSession(t, "ann")
	evs, err := s.ReportPresence("ann", false, t0.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, evs, 1)
	// Nobody else to take the turn: the index stays on the last-known
	// active player so the document remains well-formed.
	assert.Equal(t, 0, s.TurnIndex)
}

func TestPruneStale(t *testing.T) {
	s := newTestSession(t, "ann", "bob", "cat")
	later := t0.Add(StaleAfter + time.Second)
	s.LastSeen["bob"] = later
	s.LastSeen["cat"] = later

	evs, removed := s.PruneStale(later)
	assert.Equal(t, 1, removed)
	require.Len(t, s.Players, 2)
	assert.Equal(t, "bob", s.Players[0].Name)
	_, hasAnn := s.LastSeen["ann"]
	assert.False(t, hasAnn)

	// ann held the turn; it must land on a surviving active player.
	cur := s.CurrentPlayer()
	require.NotNil(t, cur)
	assert.True(t, cur.Active)

	var pruned []string
	for _, ev := range evs {
		if ev.Type == events.TypePruned {
			pruned = append(pruned, ev.Player)
		}
	}
	assert.Equal(t, []string{"ann"}, pruned)

	// Fresh state: nothing further to prune.
	evs, removed = s.PruneStale(later)
	assert.Zero(t, removed)
	assert.Empty(t, evs)
}

func TestResolveHangTimeout(t *testing.T) {
	s := newTestSession(t, "ann", "bob")
	s.Status = StatusActive
	s.TurnStartedAt = t0

	// Within the timeout with a live holder: no-op.
	res, evs, err := s.ResolveHang("bob", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Resolved)
	assert.Empty(t, evs)

	// Past the timeout: forfeit and advance.
	res, evs, err = s.ResolveHang("bob", t0.Add(turn.HangTimeout+time.Second))
	require.NoError(t, err)
	assert.True(t, res.Resolved)
	assert.Equal(t, "ann", res.Forfeited)
	assert.Equal(t, "bob", res.Holder)
	assert.Equal(t, 1, s.TurnIndex)
	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeForfeit, evs[0].Type)
}

func TestResolveHangNeedsAnotherEligiblePlayer(t *testing.T) {
	s := newTestSession(t, "ann", "bob")
	s.Players[1].Online = false
	s.TurnStartedAt = t0

	res, _, err := s.ResolveHang("ann", t0.Add(turn.HangTimeout+time.Second))
	require.NoError(t, err)
	assert.False(t, res.Resolved, "no other online player: forfeit is pointless")
	assert.Equal(t, 0, s.TurnIndex)
}

func TestReplayRequiresComplete(t *testing.T) {
	s := newTestSession(t, "ann", "bob")
	_, err := s.Replay("ann", rand.New(rand.NewSource(2)), t0)
	assert.Equal(t, fault.InvalidSession, fault.CodeOf(err))

	s.Status = StatusComplete
	s.Outcome = OutcomeDeck
	s.Players[1].Online = false // bob wandered off

	evs, err := s.Replay("ann", rand.New(rand.NewSource(2)), t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeNewGame, evs[0].Type)

	assert.Equal(t, StatusWaiting, s.Status)
	assert.Equal(t, OutcomeNone, s.Outcome)
	require.Len(t, s.Players, 1, "only online players are reseated")
	assert.Equal(t, "ann", s.Players[0].Name)
	assert.Len(t, s.Deck, 43)
	assertConservation(t, s)
}

func TestReviveIfStale(t *testing.T) {
	s := newTestSession(t, "ann")
	rng := rand.New(rand.NewSource(3))

	assert.Empty(t, s.ReviveIfStale(rng, t0.Add(time.Minute)), "fresh session untouched")
	require.Len(t, s.Players, 1)

	s.UpdatedAt = t0
	evs := s.ReviveIfStale(rng, t0.Add(RecycleAfter+time.Minute))
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeReset, evs[0].Type)
	assert.Empty(t, s.Players, "recycled session starts with an empty roster")
	assert.Equal(t, StatusWaiting, s.Status)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := newTestSession(t, "ann", "bob")
	raw, err := s.Encode()
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, s.Players, got.Players)
	assert.Equal(t, s.TurnIndex, got.TurnIndex)
	assert.Equal(t, len(s.Deck), len(got.Deck))

	absent, err := Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, absent)
}
