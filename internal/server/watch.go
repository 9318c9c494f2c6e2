package server

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
)

// handleWatch upgrades to a websocket and relays the session's live feed,
// one JSON event per text message, until the client goes away.
func (s *Server) handleWatch(game string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			s.log.WithError(err).Debug("websocket accept failed")
			return
		}
		defer conn.Close(websocket.StatusInternalError, "stream closed")

		// Watchers never send anything meaningful; CloseRead drains the
		// connection and cancels the context on disconnect.
		ctx := conn.CloseRead(r.Context())

		ch, cancel, err := s.feed.Subscribe(ctx, game)
		if err != nil {
			s.log.WithError(err).Warn("feed subscribe failed")
			conn.Close(websocket.StatusInternalError, "feed unavailable")
			return
		}
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case ev, ok := <-ch:
				if !ok {
					conn.Close(websocket.StatusNormalClosure, "feed closed")
					return
				}
				raw, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
					return
				}
			}
		}
	}
}
