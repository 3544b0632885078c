package registry

import (
	"log/slog"
	"sync"

	"github.com/xfeldman/overlay/internal/bridge"
)

const recorderQueue = 64

type recordOp struct {
	ended bool
	info  bridge.SessionInfo
}

// Recorder persists bridge session lifecycle on a background goroutine so
// the bridge read loop never waits on disk. Write failures are logged
// and dropped.
type Recorder struct {
	db   *DB
	keep int
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
	ops    chan recordOp
	done   chan struct{}
}

var _ bridge.Recorder = (*Recorder)(nil)

// NewRecorder starts a recorder writing to db. After each ended session
// the table is pruned to the keep most recent rows; keep <= 0 disables
// pruning.
func NewRecorder(db *DB, keep int, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{
		db:   db,
		keep: keep,
		log:  log,
		ops:  make(chan recordOp, recorderQueue),
		done: make(chan struct{}),
	}
	go r.loop()
	return r
}

// SessionStarted implements bridge.Recorder.
func (r *Recorder) SessionStarted(info bridge.SessionInfo) {
	r.enqueue(recordOp{info: info})
}

// SessionEnded implements bridge.Recorder.
func (r *Recorder) SessionEnded(info bridge.SessionInfo) {
	r.enqueue(recordOp{ended: true, info: info})
}

func (r *Recorder) enqueue(op recordOp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Warn("session recorder closed, dropping record", "session", op.info.ID, "ended", op.ended)
		return
	}
	select {
	case r.ops <- op:
	default:
		r.log.Warn("session recorder queue full, dropping record", "session", op.info.ID, "ended", op.ended)
	}
}

// Close flushes queued records and stops the writer. Records arriving
// afterwards are dropped.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ops)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)
	for op := range r.ops {
		if !op.ended {
			if err := r.db.StartSession(op.info); err != nil {
				r.log.Error("record session start", "session", op.info.ID, "error", err)
			}
			continue
		}
		if err := r.db.EndSession(op.info); err != nil {
			r.log.Error("record session end", "session", op.info.ID, "error", err)
		}
		if r.keep > 0 {
			if n, err := r.db.PruneSessions(r.keep); err != nil {
				r.log.Error("prune sessions", "error", err)
			} else if n > 0 {
				r.log.Debug("pruned sessions", "count", n)
			}
		}
	}
}
