// internal/httpserver/server.go
//
// HTTP surface of the round server.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Accounts: POST /auth/signup (registration), POST /auth/token (JWT for
//     the notification socket).
//   - Read-only game views: GET /leaderboard, GET /round (routes_round.go).
//   - Notifications: GET /ws?token=… streams the session's mailbox.
//
// Notes:
//   - Game play itself happens on the TCP protocol; HTTP never opens a session.
//   - The handler timeout is not applied to /ws, which is long-lived.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/round-server/internal/engine"
	"github.com/robalobadob/wordle/apps/round-server/internal/notify"
)

// Game is the engine surface the HTTP endpoints use.
type Game interface {
	Register(ctx context.Context, username, password string) engine.RegisterStatus
	Authenticate(username, password string) bool
	Leaderboard() []engine.Standing
	Top() []string
	Round() engine.RoundInfo
}

// Options configures token signing and CORS.
type Options struct {
	JWTSecret    string
	JWTExpires   time.Duration
	ClientOrigin string
}

// Server bundles router and dependencies.
type Server struct {
	r    *chi.Mux
	game Game
	hub  *notify.Hub
	opts Options

	mu     sync.Mutex
	http   *http.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Server, installs middleware, and registers routes.
func New(g Game, hub *notify.Hub, opts Options) *Server {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "dev_secret_change_me"
	}
	if opts.JWTExpires <= 0 {
		opts.JWTExpires = 12 * time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{r: chi.NewRouter(), game: g, hub: hub, opts: opts, ctx: ctx, cancel: cancel}

	// --- middleware ---
	s.r.Use(chimw.RequestID)     // add X-Request-ID
	s.r.Use(chimw.RealIP)        // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)       // zerolog access log
	s.r.Use(chimw.Recoverer)     // recover from panics
	s.r.Use(cors(opts.ClientOrigin))

	// Notification socket: no timeout, no JSON content type.
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"wordle-rounds","endpoints":["/health","/leaderboard","/round","POST /auth/signup","POST /auth/token","/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/token", s.handleToken)
		r.With(s.requireAuth).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			me, err := currentUser(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			_ = json.NewEncoder(w).Encode(me)
		})

		s.mountRound(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ListenAndServe serves HTTP on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves HTTP on ln until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.http = hs
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("http listener started")
	if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, ends open notification streams, and
// waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	hs := s.http
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// ------------------------------- AUTH --------------------------------------

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup registers an account; play then happens over TCP.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	switch s.game.Register(r.Context(), body.Username, body.Password) {
	case engine.RegisterOK:
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"username": strings.TrimSpace(body.Username)})
	case engine.RegisterExists:
		writeError(w, http.StatusConflict, "username_taken")
	case engine.RegisterStorageError:
		writeError(w, http.StatusInternalServerError, "storage_error")
	default:
		writeError(w, http.StatusBadRequest, "invalid_credentials")
	}
}

type tokenRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleToken exchanges credentials for a JWT usable on /ws.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !s.game.Authenticate(body.Username, body.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	tok, exp, err := s.signJWT(strings.TrimSpace(body.Username))
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(tokenRes{Token: tok, ExpiresAt: exp})
}

// writeError sends {"error": msg} with status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
