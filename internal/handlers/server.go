// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/tycoon/internal/game"
	"github.com/jason-s-yu/tycoon/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (int, error)
}

// StatusServer exposes the running sessions: their turn view, a live event
// stream, and the local seat's commands.
type StatusServer struct {
	Store  *game.SessionStore
	Hub    *Hub
	Auth   Authenticator // nil accepts every caller
	Logger *logrus.Logger
}

// SessionSummary is one row of GET /sessions.
type SessionSummary struct {
	Code            string     `json:"code"`
	SessionID       string     `json:"session_id"`
	GameID          int        `json:"game_id"`
	Phase           game.Phase `json:"phase"`
	CurrentPlayerID int        `json:"current_player_id"`
	Finished        bool       `json:"finished"`
	Watchers        int        `json:"watchers"`
}

// Routes builds the HTTP handler.
func (s *StatusServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	mux.HandleFunc("GET /sessions", s.handleList)
	mux.HandleFunc("GET /sessions/{code}", s.handleView)
	mux.HandleFunc("GET /sessions/{code}/trades", s.handleTrades)
	mux.HandleFunc("POST /sessions/{code}/actions", s.handleAction)
	mux.HandleFunc("GET /sessions/{code}/ws", s.handleWatch)
	return middleware.LogMiddleware(s.Logger)(mux)
}

func (s *StatusServer) handleList(w http.ResponseWriter, r *http.Request) {
	sessions := s.Store.List()
	out := make([]SessionSummary, 0, len(sessions))
	for _, o := range sessions {
		v := o.View()
		sum := SessionSummary{
			Code:            v.Code,
			SessionID:       v.SessionID.String(),
			GameID:          v.GameID,
			Phase:           v.Phase,
			CurrentPlayerID: v.CurrentPlayerID,
			Finished:        v.Finished,
		}
		if s.Hub != nil {
			sum.Watchers = s.Hub.Watchers(v.Code)
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": out})
}

// session resolves {code}, writing a 404 when it is unknown.
func (s *StatusServer) session(w http.ResponseWriter, r *http.Request) (*game.Orchestrator, bool) {
	o, ok := s.Store.Get(r.PathValue("code"))
	if !ok {
		writeError(w, http.StatusNotFound, "no session for game "+r.PathValue("code"))
		return nil, false
	}
	return o, true
}

func (s *StatusServer) handleView(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": o.View()})
}

func (s *StatusServer) handleTrades(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": o.Trades()})
}
