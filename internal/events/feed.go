package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Feed reads a session's narration back out: the recent tail of the log
// list, and a live subscription for watchers.
type Feed interface {
	Recent(ctx context.Context, session string, limit int) ([]Event, error)
	Subscribe(ctx context.Context, session string) (<-chan Event, func(), error)
}

// RedisFeed reads what RedisSink writes.
type RedisFeed struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewRedisFeed wraps an existing client.
func NewRedisFeed(client *redis.Client, log *logrus.Entry) *RedisFeed {
	return &RedisFeed{client: client, log: log}
}

// Recent returns up to limit of the newest log entries, oldest first.
func (f *RedisFeed) Recent(ctx context.Context, session string, limit int) ([]Event, error) {
	if limit <= 0 || limit > logLimit {
		limit = logLimit
	}
	raws, err := f.client.LRange(ctx, ListKey(session), int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}
	evs := make([]Event, 0, len(raws))
	for _, raw := range raws {
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			f.log.WithError(err).Warn("skip malformed log entry")
			continue
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

// Subscribe relays the session's pub/sub channel onto an event channel until
// the context ends or the returned cancel func is called. Slow consumers
// drop events rather than back up the pump.
func (f *RedisFeed) Subscribe(ctx context.Context, session string) (<-chan Event, func(), error) {
	sub := f.client.Subscribe(ctx, ChannelKey(session))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 32)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.log.WithError(err).Warn("skip malformed feed entry")
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

// MemoryFeed is an in-process Feed fed by its own Emit; used by tests. It is
// a Sink as well, so it can stand in for the whole Redis pair.
type MemoryFeed struct {
	mu   sync.Mutex
	logs map[string][]Event
	subs map[string][]chan Event
}

// NewMemoryFeed returns an empty feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		logs: make(map[string][]Event),
		subs: make(map[string][]chan Event),
	}
}

// Emit implements Sink.
func (f *MemoryFeed) Emit(session string, evs ...Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range evs {
		ev.Session = session
		f.logs[session] = append(f.logs[session], ev)
		for _, ch := range f.subs[session] {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Recent implements Feed.
func (f *MemoryFeed) Recent(_ context.Context, session string, limit int) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log := f.logs[session]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return append([]Event(nil), log...), nil
}

// Subscribe implements Feed.
func (f *MemoryFeed) Subscribe(_ context.Context, session string) (<-chan Event, func(), error) {
	ch := make(chan Event, 32)
	f.mu.Lock()
	f.subs[session] = append(f.subs[session], ch)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, c := range f.subs[session] {
			if c == ch {
				f.subs[session] = append(f.subs[session][:i], f.subs[session][i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel, nil
}
