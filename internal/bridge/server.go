// Package bridge hosts the local WebSocket endpoint an external agent
// connects to.
//
// Agent frames are decoded and pushed into a Sink as agent-message,
// agent-status and agent-error events. UI commands travel back through the
// Dispatcher, which writes into the single Slot holding the most recently
// connected session's outbound handle.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultAddr is the fixed local endpoint agents dial.
const DefaultAddr = "127.0.0.1:19823"

// Options configures a Server.
type Options struct {
	// Addr is the TCP address to bind. Defaults to DefaultAddr.
	Addr string

	// Exclusive refuses new connections while a session is active.
	// When false the newest connection takes over the writer slot.
	Exclusive bool

	// AllowedOrigins lists browser origins permitted to connect. Requests
	// without an Origin header are always accepted; "*" accepts any origin.
	AllowedOrigins []string

	// MaxMessageBytes caps a single inbound frame. Zero means no limit.
	MaxMessageBytes int64

	// WriteTimeout bounds each outbound write. Zero means no deadline.
	WriteTimeout time.Duration

	Sink     Sink
	Recorder Recorder
	Logger   *slog.Logger
}

// Server is the agent bridge listener.
type Server struct {
	opts       Options
	sink       Sink
	rec        Recorder
	log        *slog.Logger
	slot       *Slot
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	httpSrv    *http.Server
	addr       atomic.Pointer[net.TCPAddr]
	stopping   atomic.Bool

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

// NewServer creates a bridge server. Nothing is bound until Start.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	s := &Server{
		opts:     opts,
		sink:     opts.Sink,
		rec:      opts.Recorder,
		log:      opts.Logger,
		slot:     &Slot{},
		sessions: make(map[*session]struct{}),
	}
	if s.sink == nil {
		s.sink = Discard
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "bridge")
	s.dispatcher = NewDispatcher(s.slot, s.log)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.httpSrv = &http.Server{Handler: http.HandlerFunc(s.handleUpgrade)}
	return s
}

// Start binds the listen address and serves in the background.
//
// A bind failure is reported once as an agent-error event and returned;
// the bridge then offers no service. Accept errors after a successful bind
// never stop the server.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		s.log.Error("failed to bind agent bridge", "addr", s.opts.Addr, "error", err)
		s.sink.Emit(EventError, fmt.Sprintf("Failed to start server: %v", err))
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	tcpAddr := ln.Addr().(*net.TCPAddr)
	s.addr.Store(tcpAddr)

	port := tcpAddr.Port
	s.log.Info("agent bridge listening", "url", "ws://"+ln.Addr().String())
	s.sink.Emit(EventStatus, fmt.Sprintf("Listening on port %d", port))

	go func() {
		err := s.httpSrv.Serve(&retryListener{Listener: ln, log: s.log})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("agent bridge stopped", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener and every live agent connection, then waits for
// their read loops to finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.stopping.Store(true)
	err := s.httpSrv.Shutdown(ctx)

	s.slot.Close()
	s.mu.Lock()
	for sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Addr returns the bound address, or nil before Start. Safe to call
// concurrently with Start.
func (s *Server) Addr() net.Addr {
	a := s.addr.Load()
	if a == nil {
		return nil
	}
	return a
}

// Connected reports whether an agent session currently owns the slot.
func (s *Server) Connected() bool {
	_, ok := s.slot.Current()
	return ok
}

// SessionID returns the ID of the session owning the slot.
func (s *Server) SessionID() (string, bool) {
	return s.slot.Current()
}

// Dispatcher returns the command dispatcher bound to this server's slot.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.opts.Exclusive && s.Connected() {
		s.log.Warn("refusing agent connection, session already active", "remote", r.RemoteAddr)
		http.Error(w, "agent already connected", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket handshake failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.opts.MaxMessageBytes)
	}

	sess := newSession(conn, r.RemoteAddr, r.UserAgent(), s)
	s.mu.Lock()
	if s.stopping.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		s.wg.Done()
	}()
	sess.run()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// retryListener keeps accepting after transient errors. Only a closed
// listener ends the accept loop.
type retryListener struct {
	net.Listener
	log *slog.Logger
}

func (l *retryListener) Accept() (net.Conn, error) {
	var delay time.Duration
	for {
		c, err := l.Listener.Accept()
		if err == nil {
			return c, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, err
		}
		if delay == 0 {
			delay = 5 * time.Millisecond
		} else {
			delay *= 2
		}
		if delay > time.Second {
			delay = time.Second
		}
		l.log.Warn("accept failed, retrying", "error", err, "delay", delay)
		time.Sleep(delay)
	}
}
