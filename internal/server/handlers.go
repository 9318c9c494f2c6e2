package server

import (
	"net/http"

	"github.com/tclemens/cardtable/internal/highlow"
)

type joinRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type presenceRequest struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

type guessRequest struct {
	Name   string        `json:"name"`
	Guess  highlow.Guess `json:"guess"`
	PileID string        `json:"pileId"`
}

type drawRequest struct {
	Name    string `json:"name"`
	CardPos *int   `json:"cardPos"`
}

func (s *Server) handleHighLowState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.highlow.State(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHighLowJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.highlow.Join(r.Context(), req.Name, req.DisplayName)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHighLowGuess(w http.ResponseWriter, r *http.Request) {
	var req guessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.highlow.Guess(r.Context(), req.Name, req.Guess, req.PileID)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHighLowPresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.highlow.Presence(r.Context(), req.Name, req.Online)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHighLowHang(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.highlow.ResolveHang(r.Context(), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHighLowNewGame(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.highlow.NewGame(r.Context(), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHighLowCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.highlow.Cleanup(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleOldMaidState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.oldmaid.State(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleOldMaidJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.oldmaid.Join(r.Context(), req.Name, req.DisplayName)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleOldMaidStart(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.oldmaid.StartGame(r.Context(), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleOldMaidDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.oldmaid.Draw(r.Context(), req.Name, req.CardPos)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOldMaidShuffle(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.oldmaid.Shuffle(r.Context(), req.Name); err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"shuffled": true})
}

func (s *Server) handleOldMaidPresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.oldmaid.Presence(r.Context(), req.Name, req.Online)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleOldMaidHang(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.oldmaid.ResolveHang(r.Context(), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOldMaidNewGame(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.oldmaid.NewGame(r.Context(), req.Name)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleOldMaidCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.oldmaid.Cleanup(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
