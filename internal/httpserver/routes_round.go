// internal/httpserver/routes_round.go
//
// Read-only views of the game:
//   - GET /leaderboard → full ranking (ascending score; unplayed accounts omitted)
//   - GET /round       → active round index, word length, start time, online count
//   - GET /ws          → websocket stream of the caller's notifications
//
// The secret word is never exposed here.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/round-server/internal/engine"
	"github.com/robalobadob/wordle/apps/round-server/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// mountRound registers the read-only game views.
func (s *Server) mountRound(r chi.Router) {
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/round", s.handleRound)
}

type leaderboardRes struct {
	Standings []engine.Standing `json:"standings"`
	Top       []string          `json:"top"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(leaderboardRes{Standings: s.game.Leaderboard(), Top: s.game.Top()})
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.game.Round())
}

// handleWS attaches a websocket to the mailbox of the caller's TCP session.
// The caller must be logged in over TCP; one stream per session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	tok := bearerOrQuery(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	username, err := s.parseJWT(tok)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	var mb *notify.Mailbox
	if s.hub != nil {
		mb, _ = s.hub.Get(username)
	}
	if mb == nil {
		writeError(w, http.StatusNotFound, "not_online")
		return
	}
	if !mb.Claim() {
		writeError(w, http.StatusConflict, "already_streaming")
		return
	}
	defer mb.Unclaim()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("user", username).Msg("websocket upgrade failed")
		return
	}
	log.Info().Str("user", username).Msg("notification stream opened")
	notify.Stream(s.ctx, conn, mb)
	log.Info().Str("user", username).Msg("notification stream closed")
}
