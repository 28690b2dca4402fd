package protocol

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Server accepts game connections and runs a Handler goroutine per
// connection.
type Server struct {
	handler *Handler

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]string
	closing  bool
	handlers sync.WaitGroup
}

// NewServer returns a server dispatching to h.
func NewServer(h *Handler) *Server {
	return &Server{handler: h, conns: make(map[net.Conn]string)}
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until Close is called, returning nil in that case.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("game listener started")
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept")
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0
		s.track(ctx, conn)
	}
}

func (s *Server) track(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conns[conn] = id
	s.handlers.Add(1)
	s.mu.Unlock()

	logger := log.With().Str("conn", id).Str("addr", conn.RemoteAddr().String()).Logger()
	go func() {
		defer s.handlers.Done()
		defer func() {
			_ = conn.Close()
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			logger.Debug().Msg("connection closed")
		}()
		logger.Debug().Msg("connection accepted")
		s.handler.Serve(logger.WithContext(ctx), conn)
	}()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Addr is the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting new connections. Open connections keep running.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

// Open is the number of live connections.
func (s *Server) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// CloseConnections closes every open connection and waits for their
// handlers, and with them the implicit logouts, to finish.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	s.closing = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.handlers.Wait()
}
