package service

import (
	"bytes"
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tclemens/cardtable/internal/archive"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/names"
	"github.com/tclemens/cardtable/internal/oldmaid"
	"github.com/tclemens/cardtable/internal/retry"
	"github.com/tclemens/cardtable/internal/store"
)

// OldMaid runs the shared pairing session.
type OldMaid struct {
	store    store.Store
	sink     events.Sink
	archiver archive.Archiver
	log      *logrus.Entry
	policy   retry.Policy
	dice     *dice
	now      func() time.Time
}

// NewOldMaid wires an Old Maid service over the given store.
func NewOldMaid(st store.Store, sink events.Sink, arch archive.Archiver, log *logrus.Entry) *OldMaid {
	return &OldMaid{
		store:    st,
		sink:     sink,
		archiver: arch,
		log:      log,
		policy:   retry.Default,
		dice:     newDice(time.Now().UnixNano()),
		now:      nowUTC,
	}
}

// update mirrors HighLow.update: one optimistic cycle with creation, revival
// and pruning folded in, post-commit narration and archival afterwards.
func (s *OldMaid) update(ctx context.Context, fn func(sess *oldmaid.Session, rng *rand.Rand, now time.Time) ([]events.Event, error)) (*oldmaid.Session, int, error) {
	now := s.now()

	var out *oldmaid.Session
	var evs []events.Event
	var displaced []byte
	var pruned int

	err := s.policy.Do(ctx, func() error {
		out, evs, displaced, pruned = nil, nil, nil, 0
		rng := s.dice.fork()

		return s.store.Transact(ctx, OldMaidKey, func(doc []byte) ([]byte, error) {
			sess, err := oldmaid.Decode(doc)
			if err != nil {
				return nil, err
			}
			if sess == nil {
				sess = oldmaid.NewSession(now)
			}
			wasComplete := sess.Status == oldmaid.StatusComplete

			evs = append(evs, sess.ReviveIfStale(now)...)
			pruneEvs, removed := sess.PruneStale(now)
			evs = append(evs, pruneEvs...)
			pruned = removed

			opEvs, err := fn(sess, rng, now)
			evs = append(evs, opEvs...)
			if err != nil {
				return nil, err
			}

			if wasComplete && sess.Status != oldmaid.StatusComplete {
				displaced = doc
			}

			out = sess
			next, err := sess.Encode()
			if err != nil {
				return nil, err
			}
			// A cycle that changed nothing is a pure read. Skip the
			// commit so polling never counts as table activity.
			if doc != nil && bytes.Equal(next, doc) {
				return nil, nil
			}
			sess.UpdatedAt = now
			return sess.Encode()
		})
	})
	if err != nil {
		return nil, 0, err
	}

	// Narration carries the transaction clock, not the wall clock.
	for i := range evs {
		evs[i].At = now
	}
	s.sink.Emit(GameOldMaid, evs...)
	if displaced != nil {
		if err := s.archiver.Archive(ctx, GameOldMaid, displaced); err != nil {
			s.log.WithError(err).Warn("oldmaid: archive of finished game failed")
		}
	}
	return out, pruned, nil
}

// State returns the current session, creating an empty lobby if none exists.
func (s *OldMaid) State(ctx context.Context) (*oldmaid.Session, error) {
	sess, _, err := s.update(ctx, func(*oldmaid.Session, *rand.Rand, time.Time) ([]events.Event, error) {
		return nil, nil
	})
	return sess, err
}

// Join seats a player in the lobby, or reconnects a seated one mid-game.
func (s *OldMaid) Join(ctx context.Context, name, display string) (*oldmaid.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	display = names.Display(name, display)
	sess, _, err := s.update(ctx, func(sess *oldmaid.Session, _ *rand.Rand, now time.Time) ([]events.Event, error) {
		var evs []events.Event
		// A newcomer arriving at a finished table displaces it; the old
		// document is archived after commit.
		if sess.Status == oldmaid.StatusComplete && !sess.Seated(key) {
			*sess = *oldmaid.NewSession(now)
			evs = append(evs, events.New(events.TypeNewGame, key, "table cleared for a new game"))
		}
		joinEvs, err := sess.Join(key, display, now)
		return append(evs, joinEvs...), err
	})
	return sess, err
}

// StartGame deals the first hand of a waiting lobby.
func (s *OldMaid) StartGame(ctx context.Context, name string) (*oldmaid.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	sess, _, err := s.update(ctx, func(sess *oldmaid.Session, rng *rand.Rand, now time.Time) ([]events.Event, error) {
		return sess.StartGame(key, rng, now)
	})
	return sess, err
}

// Draw takes one card from the next holder. cardPos is the client's chosen
// face-down index, nil to draw blind.
func (s *OldMaid) Draw(ctx context.Context, name string, cardPos *int) (*oldmaid.DrawResult, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	var res *oldmaid.DrawResult
	_, _, err = s.update(ctx, func(sess *oldmaid.Session, rng *rand.Rand, now time.Time) ([]events.Event, error) {
		var evs []events.Event
		res, evs, err = sess.Draw(key, cardPos, rng, now)
		return evs, err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Shuffle permutes the caller's hand under the advisory shuffle lock, then
// releases the lock in a follow-up transaction once the narration is out.
// The lock's TTL covers a crash between the two.
func (s *OldMaid) Shuffle(ctx context.Context, name string) error {
	key, err := names.Key(name)
	if err != nil {
		return err
	}
	_, _, err = s.update(ctx, func(sess *oldmaid.Session, rng *rand.Rand, now time.Time) ([]events.Event, error) {
		return sess.ShuffleHand(key, rng, now)
	})
	if err != nil {
		return err
	}

	relErr := s.policy.Do(ctx, func() error {
		return s.store.Transact(ctx, OldMaidKey, func(doc []byte) ([]byte, error) {
			sess, err := oldmaid.Decode(doc)
			if err != nil || sess == nil {
				return nil, err
			}
			if !sess.ClearShuffleLock(key) {
				return nil, nil
			}
			return sess.Encode()
		})
	})
	if relErr != nil {
		// The TTL will expire it.
		s.log.WithError(relErr).Warn("oldmaid: shuffle lock release failed")
	}
	return nil
}

// Presence records a heartbeat or an online/offline flip.
func (s *OldMaid) Presence(ctx context.Context, name string, online bool) (*oldmaid.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	sess, _, err := s.update(ctx, func(sess *oldmaid.Session, _ *rand.Rand, now time.Time) ([]events.Event, error) {
		return sess.ReportPresence(key, online, now)
	})
	return sess, err
}

// ResolveHang lets any seated player force a stuck turn forward.
func (s *OldMaid) ResolveHang(ctx context.Context, name string) (*oldmaid.HangResult, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	var res *oldmaid.HangResult
	_, _, err = s.update(ctx, func(sess *oldmaid.Session, _ *rand.Rand, now time.Time) ([]events.Event, error) {
		var evs []events.Event
		res, evs, err = sess.ResolveHang(key, now)
		return evs, err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// NewGame replaces a finished session with a rematch, archiving the old
// document post-commit.
func (s *OldMaid) NewGame(ctx context.Context, name string) (*oldmaid.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	sess, _, err := s.update(ctx, func(sess *oldmaid.Session, rng *rand.Rand, now time.Time) ([]events.Event, error) {
		return sess.Replay(key, rng, now)
	})
	return sess, err
}

// Cleanup prunes stale players and reports how many were removed.
func (s *OldMaid) Cleanup(ctx context.Context) (int, error) {
	_, removed, err := s.update(ctx, func(*oldmaid.Session, *rand.Rand, time.Time) ([]events.Event, error) {
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
