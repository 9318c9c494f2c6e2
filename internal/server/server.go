// Package server exposes the two game services over HTTP JSON plus a
// websocket feed of each session's narration.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/fault"
	"github.com/tclemens/cardtable/internal/service"
)

// Server holds the wired services and the feed for watchers.
type Server struct {
	highlow *service.HighLow
	oldmaid *service.OldMaid
	feed    events.Feed
	log     *logrus.Entry
}

// New assembles a Server.
func New(hl *service.HighLow, om *service.OldMaid, feed events.Feed, log *logrus.Entry) *Server {
	return &Server{highlow: hl, oldmaid: om, feed: feed, log: log}
}

// Routes builds the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/highlow", s.handleHighLowState)
	mux.HandleFunc("POST /api/highlow/join", s.handleHighLowJoin)
	mux.HandleFunc("POST /api/highlow/guess", s.handleHighLowGuess)
	mux.HandleFunc("POST /api/highlow/presence", s.handleHighLowPresence)
	mux.HandleFunc("POST /api/highlow/hang", s.handleHighLowHang)
	mux.HandleFunc("POST /api/highlow/new", s.handleHighLowNewGame)
	mux.HandleFunc("POST /api/highlow/cleanup", s.handleHighLowCleanup)
	mux.HandleFunc("GET /api/highlow/log", s.handleLog(service.GameHighLow))
	mux.HandleFunc("GET /watch/highlow", s.handleWatch(service.GameHighLow))

	mux.HandleFunc("GET /api/oldmaid", s.handleOldMaidState)
	mux.HandleFunc("POST /api/oldmaid/join", s.handleOldMaidJoin)
	mux.HandleFunc("POST /api/oldmaid/start", s.handleOldMaidStart)
	mux.HandleFunc("POST /api/oldmaid/draw", s.handleOldMaidDraw)
	mux.HandleFunc("POST /api/oldmaid/shuffle", s.handleOldMaidShuffle)
	mux.HandleFunc("POST /api/oldmaid/presence", s.handleOldMaidPresence)
	mux.HandleFunc("POST /api/oldmaid/hang", s.handleOldMaidHang)
	mux.HandleFunc("POST /api/oldmaid/new", s.handleOldMaidNewGame)
	mux.HandleFunc("POST /api/oldmaid/cleanup", s.handleOldMaidCleanup)
	mux.HandleFunc("GET /api/oldmaid/log", s.handleLog(service.GameOldMaid))
	mux.HandleFunc("GET /watch/oldmaid", s.handleWatch(service.GameOldMaid))

	return mux
}

func (s *Server) handleLog(game string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		evs, err := s.feed.Recent(r.Context(), game, 100)
		if err != nil {
			s.log.WithError(err).Warn("read event log")
			writeError(w, http.StatusInternalServerError, fault.Internal, "event log unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": evs})
	}
}

type errorResponse struct {
	Error string     `json:"error"`
	Code  fault.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code fault.Code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeFault maps a service error onto an HTTP status: malformed input is a
// 400, unknown players a 404, rule violations a 409, everything else a 500.
func (s *Server) writeFault(w http.ResponseWriter, err error) {
	code := fault.CodeOf(err)
	status := http.StatusConflict
	switch code {
	case fault.InvalidName, fault.InvalidGuess, fault.InvalidPile:
		status = http.StatusBadRequest
	case fault.PlayerNotFound:
		status = http.StatusNotFound
	case "", fault.Internal:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, fault.Internal, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}
