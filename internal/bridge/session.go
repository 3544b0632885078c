package bridge

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xfeldman/overlay/internal/envelope"
)

// SessionInfo describes one agent connection. It is handed to the Recorder
// when the session becomes active and again when it ends.
type SessionInfo struct {
	ID         string
	RemoteAddr string
	UserAgent  string
	StartedAt  time.Time
	EndedAt    time.Time
	Received   int64 // agent messages decoded and emitted
	Rejected   int64 // frames that failed to decode
	Sent       int64 // commands written to the agent
	EndReason  string
}

// End reasons recorded in SessionInfo.EndReason.
const (
	EndClosed   = "closed"
	EndError    = "error"
	EndShutdown = "shutdown"
)

// Recorder observes session lifecycle. Implementations must not block.
type Recorder interface {
	SessionStarted(info SessionInfo)
	SessionEnded(info SessionInfo)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(SessionInfo) {}
func (nopRecorder) SessionEnded(SessionInfo)   {}

// session owns one upgraded connection. Only run reads from conn.
type session struct {
	info     SessionInfo
	conn     *websocket.Conn
	out      *handle
	slot     *Slot
	sink     Sink
	rec      Recorder
	log      *slog.Logger
	stopping func() bool

	// exclusive refuses activation while another session holds the slot.
	exclusive bool
}

func newSession(conn *websocket.Conn, remoteAddr, userAgent string, s *Server) *session {
	id := uuid.NewString()
	return &session{
		info: SessionInfo{
			ID:         id,
			RemoteAddr: remoteAddr,
			UserAgent:  userAgent,
			StartedAt:  time.Now(),
		},
		conn:      conn,
		out:       newHandle(id, conn, s.opts.WriteTimeout),
		slot:      s.slot,
		sink:      s.sink,
		rec:       s.rec,
		log:       s.log.With("session", id),
		stopping:  s.stopping.Load,
		exclusive: s.opts.Exclusive,
	}
}

// run activates the session and reads frames until the peer closes or the
// transport fails. Frames are handled strictly one at a time.
func (s *session) run() {
	if s.exclusive {
		if !s.slot.InstallIfEmpty(s.out) {
			s.refuse()
			return
		}
	} else if prev := s.slot.Install(s.out); prev != "" {
		s.log.Info("agent session replaced", "previous", prev)
	}
	s.log.Info("agent connected", "remote", s.info.RemoteAddr)
	s.sink.Emit(EventStatus, StatusConnected)
	s.rec.SessionStarted(s.info)

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.close(err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		env, err := envelope.DecodeAgentEnvelope(data)
		if err != nil {
			s.info.Rejected++
			s.log.Warn("failed to parse agent message", "error", err)
			s.sink.Emit(EventError, "Parse error: "+err.Error())
			continue
		}
		s.info.Received++
		s.sink.Emit(EventMessage, env)
	}
}

// refuse ends a session that lost the exclusive slot to a concurrent
// connection. The session never became active, so nothing is emitted or
// recorded.
func (s *session) refuse() {
	s.log.Warn("refusing agent connection, session already active", "remote", s.info.RemoteAddr)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "agent already connected")
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	s.conn.Close()
}

// close releases the slot before reporting, so a UI reacting to the
// disconnect already sees the bridge as not connected.
func (s *session) close(err error) {
	if s.slot.ClearIfCurrent(s.out) {
		s.log.Debug("writer slot cleared")
	}
	s.conn.Close()
	s.info.EndedAt = time.Now()
	s.info.Sent = s.out.sent.Load()

	// A received close frame surfaces as a CloseError carrying the peer's
	// code. A dropped TCP stream surfaces as CloseAbnormalClosure.
	var (
		ce      *websocket.CloseError
		name    string
		payload string
	)
	switch {
	case errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure:
		s.info.EndReason = EndClosed
		s.log.Info("agent disconnected", "code", ce.Code)
		name, payload = EventStatus, StatusDisconnected
	case s.stopping():
		s.info.EndReason = EndShutdown
	default:
		s.info.EndReason = EndError
		s.log.Error("agent connection error", "error", err)
		name, payload = EventError, "Connection error: "+err.Error()
	}
	s.rec.SessionEnded(s.info)
	if name != "" {
		s.sink.Emit(name, payload)
	}
}
