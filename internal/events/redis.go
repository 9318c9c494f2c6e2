package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// logLimit caps how many entries a per-session log list keeps.
const logLimit = 500

// emitTimeout bounds each best-effort Redis write.
const emitTimeout = 2 * time.Second

// RedisSink appends events to a capped per-session list and publishes them on
// a channel for live observers. Writes happen on a goroutine; failures are
// logged and dropped.
type RedisSink struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewRedisSink wraps an existing client.
func NewRedisSink(client *redis.Client, log *logrus.Entry) *RedisSink {
	return &RedisSink{client: client, log: log}
}

// ListKey returns the Redis key of a session's log list.
func ListKey(session string) string { return "log:" + session }

// ChannelKey returns the pub/sub channel of a session's live feed.
func ChannelKey(session string) string { return "feed:" + session }

// Emit implements Sink.
func (s *RedisSink) Emit(session string, evs ...Event) {
	if len(evs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		for _, ev := range evs {
			ev.Session = session
			raw, err := json.Marshal(ev)
			if err != nil {
				s.log.WithError(err).WithField("type", ev.Type).Warn("marshal event")
				continue
			}
			pipe := s.client.TxPipeline()
			pipe.RPush(ctx, ListKey(session), raw)
			pipe.LTrim(ctx, ListKey(session), -logLimit, -1)
			pipe.Publish(ctx, ChannelKey(session), raw)
			if _, err := pipe.Exec(ctx); err != nil {
				s.log.WithError(err).WithField("type", ev.Type).Warn("emit event")
			}
		}
	}()
}

// MemorySink records events synchronously; used by tests.
type MemorySink struct {
	Events []Event
}

// Emit implements Sink.
func (s *MemorySink) Emit(session string, evs ...Event) {
	for _, ev := range evs {
		ev.Session = session
		s.Events = append(s.Events, ev)
	}
}

// ByType returns recorded events of one type.
func (s *MemorySink) ByType(typ Type) []Event {
	var out []Event
	for _, ev := range s.Events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
