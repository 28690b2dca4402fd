package notify

import "sync"

// Hub indexes the mailbox of every online session by username, so the
// websocket endpoint can find the stream belonging to a TCP session.
type Hub struct {
	size int

	mu    sync.Mutex
	boxes map[string]*Mailbox
}

// NewHub returns a hub whose mailboxes buffer size events.
func NewHub(size int) *Hub {
	return &Hub{size: size, boxes: make(map[string]*Mailbox)}
}

// Open creates the mailbox for username, closing any previous one.
func (h *Hub) Open(username string) *Mailbox {
	m := NewMailbox(username, h.size)
	h.mu.Lock()
	prev := h.boxes[username]
	h.boxes[username] = m
	h.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return m
}

// Get returns the current mailbox of username.
func (h *Hub) Get(username string) (*Mailbox, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.boxes[username]
	return m, ok
}

// Release closes m and forgets it if it is still the current mailbox.
func (h *Hub) Release(m *Mailbox) {
	h.mu.Lock()
	if h.boxes[m.username] == m {
		delete(h.boxes, m.username)
	}
	h.mu.Unlock()
	m.Close()
}

// Len is the number of open mailboxes.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.boxes)
}
