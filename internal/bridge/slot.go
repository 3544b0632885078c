package bridge

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is returned when no agent session is active.
	ErrNotConnected = errors.New("not connected to agent")
	// ErrEncode wraps command serialization failures.
	ErrEncode = errors.New("encode command")
	// ErrTransport wraps socket write failures.
	ErrTransport = errors.New("write to agent")
)

// frameWriter is the outbound half of a session's socket. *websocket.Conn
// satisfies it.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// handle is a session's outbound path. It only ever leaves the session
// through the Slot.
type handle struct {
	sessionID    string
	conn         frameWriter
	writeTimeout time.Duration
	sent         atomic.Int64
}

func newHandle(sessionID string, conn frameWriter, writeTimeout time.Duration) *handle {
	return &handle{sessionID: sessionID, conn: conn, writeTimeout: writeTimeout}
}

func (h *handle) write(data []byte) error {
	if h.writeTimeout > 0 {
		if err := h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
			return err
		}
	}
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	h.sent.Add(1)
	return nil
}

// Slot holds the outbound handle of the most recently activated session.
// One mutex covers install, clear and send so a send never observes a
// half-replaced handle and writes to the socket are serialized.
type Slot struct {
	mu  sync.Mutex
	cur *handle
}

// Install makes h the current handle, discarding any previous one.
// It returns the evicted session's ID, or "" if the slot was empty.
func (s *Slot) Install(h *handle) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted string
	if s.cur != nil && s.cur != h {
		evicted = s.cur.sessionID
	}
	s.cur = h
	return evicted
}

// InstallIfEmpty makes h the current handle only when no other handle
// holds the slot. It reports whether h was installed.
func (s *Slot) InstallIfEmpty(h *handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil && s.cur != h {
		return false
	}
	s.cur = h
	return true
}

// ClearIfCurrent empties the slot only if it still holds h. A session that
// was superseded by a newer connection must not clear the newer handle.
func (s *Slot) ClearIfCurrent(h *handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != h {
		return false
	}
	s.cur = nil
	return true
}

// TrySend writes one text frame through the current handle. It returns
// ErrNotConnected without blocking on I/O when the slot is empty.
func (s *Slot) TrySend(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ErrNotConnected
	}
	return s.cur.write(data)
}

// Current returns the active session's ID.
func (s *Slot) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return "", false
	}
	return s.cur.sessionID, true
}

// Close closes the current handle's socket and empties the slot. The
// owning session's read loop then ends on its own.
func (s *Slot) Close() error {
	s.mu.Lock()
	h := s.cur
	s.cur = nil
	s.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.conn.Close()
}
