package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStampsIDAndTime(t *testing.T) {
	ev := New(TypeJoin, "ann", "ann took a seat")
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.At.IsZero())
	assert.Equal(t, "ann", ev.Player)

	withPayload := ev.WithPayload(map[string]any{"seat": 0})
	assert.Equal(t, ev.ID, withPayload.ID)
	assert.Nil(t, ev.Payload, "WithPayload does not mutate the original")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "log:highlow", ListKey("highlow"))
	assert.Equal(t, "feed:oldmaid", ChannelKey("oldmaid"))
}

func TestMemoryFeedRecentAndSubscribe(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	ch, cancel, err := feed.Subscribe(ctx, "highlow")
	require.NoError(t, err)
	defer cancel()

	feed.Emit("highlow", New(TypeJoin, "ann", "joined"), New(TypeTurn, "ann", "ann's turn"))
	feed.Emit("oldmaid", New(TypeJoin, "bob", "joined"))

	recent, err := feed.Recent(ctx, "highlow", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "highlow", recent[0].Session)

	// Limits trim from the front.
	recent, err = feed.Recent(ctx, "highlow", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, TypeTurn, recent[0].Type)

	// The subscriber sees only its own session's events.
	got := <-ch
	assert.Equal(t, TypeJoin, got.Type)
	got = <-ch
	assert.Equal(t, TypeTurn, got.Type)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}
}
