// internal/broadcast/broadcast.go
//
// Publishes shared round results to the social feed: one UDP datagram per
// share, sent to a (typically multicast) group address. Delivery is
// fire-and-forget; only local send errors are reported.

package broadcast

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Publisher sends share datagrams to a fixed address.
type Publisher struct {
	addr *net.UDPAddr

	mu   sync.Mutex
	conn *net.UDPConn
}

// New resolves addr ("host:port"). The socket is opened on first use.
func New(addr string) (*Publisher, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("broadcast: resolve %s: %w", addr, err)
	}
	return &Publisher{addr: ua}, nil
}

// Format renders a share as "<username> [p1, p2, ...]".
func Format(username string, attempts []string) string {
	return username + " [" + strings.Join(attempts, ", ") + "]"
}

// Share publishes username's attempts.
func (p *Publisher) Share(username string, attempts []string) error {
	msg := []byte(Format(username, attempts))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		conn, err := net.DialUDP("udp", nil, p.addr)
		if err != nil {
			return fmt.Errorf("broadcast: dial %s: %w", p.addr, err)
		}
		p.conn = conn
	}
	if _, err := p.conn.Write(msg); err != nil {
		// Drop the socket so the next share redials.
		_ = p.conn.Close()
		p.conn = nil
		return fmt.Errorf("broadcast: send: %w", err)
	}
	log.Debug().Str("user", username).Int("bytes", len(msg)).Msg("share published")
	return nil
}

// Close releases the socket.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
