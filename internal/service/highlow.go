package service

import (
	"bytes"
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tclemens/cardtable/internal/archive"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/highlow"
	"github.com/tclemens/cardtable/internal/names"
	"github.com/tclemens/cardtable/internal/retry"
	"github.com/tclemens/cardtable/internal/store"
)

// HighLow runs the shared nine-pile guessing session.
type HighLow struct {
	store    store.Store
	sink     events.Sink
	archiver archive.Archiver
	log      *logrus.Entry
	policy   retry.Policy
	dice     *dice
	now      func() time.Time
}

// NewHighLow wires a High/Low service over the given store. sink and
// archiver receive post-commit side effects; pass the Nop implementations to
// disable them.
func NewHighLow(st store.Store, sink events.Sink, arch archive.Archiver, log *logrus.Entry) *HighLow {
	return &HighLow{
		store:    st,
		sink:     sink,
		archiver: arch,
		log:      log,
		policy:   retry.Default,
		dice:     newDice(time.Now().UnixNano()),
		now:      nowUTC,
	}
}

// update runs one optimistic read-modify-write cycle against the session
// document: create on absence, revive if recycled, prune stale seats, then
// apply fn. On success the accumulated narration is emitted and any
// displaced finished game is archived.
func (s *HighLow) update(ctx context.Context, fn func(sess *highlow.Session, rng *rand.Rand, now time.Time) ([]events.Event, error)) (*highlow.Session, int, error) {
	now := s.now()

	var out *highlow.Session
	var evs []events.Event
	var displaced []byte
	var pruned int

	err := s.policy.Do(ctx, func() error {
		out, evs, displaced, pruned = nil, nil, nil, 0
		rng := s.dice.fork()

		return s.store.Transact(ctx, HighLowKey, func(doc []byte) ([]byte, error) {
			sess, err := highlow.Decode(doc)
			if err != nil {
				return nil, err
			}
			if sess == nil {
				sess = highlow.NewSession(rng, now)
			}
			wasComplete := sess.Status == highlow.StatusComplete

			evs = append(evs, sess.ReviveIfStale(rng, now)...)
			pruneEvs, removed := sess.PruneStale(now)
			evs = append(evs, pruneEvs...)
			pruned = removed

			opEvs, err := fn(sess, rng, now)
			evs = append(evs, opEvs...)
			if err != nil {
				return nil, err
			}

			// A finished game replaced mid-transaction is kept for the
			// record.
			if wasComplete && sess.Status != highlow.StatusComplete {
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
	s.sink.Emit(GameHighLow, evs...)
	if displaced != nil {
		if err := s.archiver.Archive(ctx, GameHighLow, displaced); err != nil {
			s.log.WithError(err).Warn("highlow: archive of finished game failed")
		}
	}
	return out, pruned, nil
}

// State returns the current session, creating a fresh one if none exists.
// Staleness upkeep runs like any other action.
func (s *HighLow) State(ctx context.Context) (*highlow.Session, error) {
	sess, _, err := s.update(ctx, func(*highlow.Session, *rand.Rand, time.Time) ([]events.Event, error) {
		return nil, nil
	})
	return sess, err
}

// Join seats (or re-seats) a player under their canonical name.
func (s *HighLow) Join(ctx context.Context, name, display string) (*highlow.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	display = names.Display(name, display)
	sess, _, err := s.update(ctx, func(sess *highlow.Session, rng *rand.Rand, now time.Time) ([]events.Event, error) {
		var evs []events.Event
		// A newcomer arriving at a finished table displaces it; the old
		// document is archived after commit.
		if sess.Status == highlow.StatusComplete && !sess.Seated(key) {
			*sess = *highlow.NewSession(rng, now)
			evs = append(evs, events.New(events.TypeNewGame, key, "table cleared for a new game"))
		}
		return append(evs, sess.Join(key, display, now)...), nil
	})
	return sess, err
}

// Guess applies one higher/lower guess against a pile.
func (s *HighLow) Guess(ctx context.Context, name string, guess highlow.Guess, pileID string) (*highlow.GuessResult, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	var res *highlow.GuessResult
	_, _, err = s.update(ctx, func(sess *highlow.Session, _ *rand.Rand, now time.Time) ([]events.Event, error) {
		var evs []events.Event
		res, evs, err = sess.MakeGuess(key, guess, pileID, now)
		return evs, err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Presence records a heartbeat or an online/offline flip.
func (s *HighLow) Presence(ctx context.Context, name string, online bool) (*highlow.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	sess, _, err := s.update(ctx, func(sess *highlow.Session, _ *rand.Rand, now time.Time) ([]events.Event, error) {
		return sess.ReportPresence(key, online, now)
	})
	return sess, err
}

// ResolveHang lets any seated player force a stuck turn forward.
func (s *HighLow) ResolveHang(ctx context.Context, name string) (*highlow.HangResult, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	var res *highlow.HangResult
	_, _, err = s.update(ctx, func(sess *highlow.Session, _ *rand.Rand, now time.Time) ([]events.Event, error) {
		var evs []events.Event
		res, evs, err = sess.ResolveHang(key, now)
		return evs, err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// NewGame replaces a finished session with a fresh deal. The displaced
// document is archived post-commit.
func (s *HighLow) NewGame(ctx context.Context, name string) (*highlow.Session, error) {
	key, err := names.Key(name)
	if err != nil {
		return nil, err
	}
	sess, _, err := s.update(ctx, func(sess *highlow.Session, rng *rand.Rand, now time.Time) ([]events.Event, error) {
		return sess.Replay(key, rng, now)
	})
	return sess, err
}

// Cleanup prunes stale players and reports how many were removed.
func (s *HighLow) Cleanup(ctx context.Context) (int, error) {
	_, removed, err := s.update(ctx, func(*highlow.Session, *rand.Rand, time.Time) ([]events.Event, error) {
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
