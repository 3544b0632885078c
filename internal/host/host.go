// Package host assembles the overlay runtime from configuration: logging,
// the session registry, the UI event feed and the agent bridge. Both the
// desktop shell and the headless bridge binary run on a Host.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xfeldman/overlay/internal/bridge"
	"github.com/xfeldman/overlay/internal/config"
	"github.com/xfeldman/overlay/internal/feed"
	"github.com/xfeldman/overlay/internal/logfile"
	"github.com/xfeldman/overlay/internal/logging"
	"github.com/xfeldman/overlay/internal/registry"
)

// Status is a snapshot of the bridge for the UI.
type Status struct {
	Addr      string `json:"addr"`
	Listening bool   `json:"listening"`
	Connected bool   `json:"connected"`
	SessionID string `json:"session_id,omitempty"`
}

// Host owns the long-lived overlay components.
type Host struct {
	Config *config.Config
	Log    *slog.Logger
	Feed   *feed.Feed
	Bridge *bridge.Server

	// DB is nil when the registry is disabled (empty db_path).
	DB *registry.DB

	rec     *registry.Recorder
	logFile *logfile.Writer
}

// New builds a Host from cfg. Console receives human-readable logs; nil
// keeps logs in the file only. The returned Host has not bound anything.
func New(cfg *config.Config, console io.Writer) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	h := &Host{Config: cfg}

	var file io.Writer
	if cfg.Log.File != "" {
		w, err := logfile.Open(cfg.Log.File, cfg.Log.MaxFileBytes)
		if err != nil {
			return nil, err
		}
		h.logFile = w
		file = w
	}
	log, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Console: console, File: file})
	if err != nil {
		h.closeLog()
		return nil, err
	}
	h.Log = log

	var rec bridge.Recorder
	if cfg.DBPath != "" {
		db, err := registry.Open(cfg.DBPath)
		if err != nil {
			h.closeLog()
			return nil, fmt.Errorf("open registry: %w", err)
		}
		if n, err := db.CloseDangling(time.Now()); err != nil {
			log.Warn("close dangling sessions", "error", err)
		} else if n > 0 {
			log.Info("marked interrupted sessions", "count", n)
		}
		h.DB = db
		h.rec = registry.NewRecorder(db, cfg.Registry.KeepSessions, log.With("component", "registry"))
		rec = h.rec
		log.Debug("registry opened", "path", cfg.DBPath)
	}

	h.Feed = feed.New(cfg.Bridge.FeedSize)
	h.Bridge = bridge.NewServer(bridge.Options{
		Addr:            cfg.Bridge.ListenAddr,
		Exclusive:       cfg.Bridge.Exclusive,
		AllowedOrigins:  cfg.Bridge.AllowedOrigins,
		MaxMessageBytes: cfg.Bridge.MaxMessageBytes,
		WriteTimeout:    cfg.Bridge.WriteTimeout,
		Sink:            h.Feed,
		Recorder:        rec,
		Logger:          log,
	})
	return h, nil
}

// Start binds the bridge. On a bind failure the error has already been
// delivered to the feed; callers with a UI may keep running without a
// bridge.
func (h *Host) Start(ctx context.Context) error {
	return h.Bridge.Start(ctx)
}

// Send forwards user input to the connected agent.
func (h *Host) Send(content string) error {
	return h.Bridge.Dispatcher().Send(content)
}

// Status reports the bridge state.
func (h *Host) Status() Status {
	st := Status{Addr: h.Config.Bridge.ListenAddr}
	if a := h.Bridge.Addr(); a != nil {
		st.Addr = a.String()
		st.Listening = true
	}
	st.SessionID, st.Connected = h.Bridge.SessionID()
	return st
}

// Sessions returns recent connection records, newest first.
func (h *Host) Sessions(limit int) ([]*registry.Session, error) {
	if h.DB == nil {
		return nil, nil
	}
	return h.DB.ListSessions(limit)
}

// Close stops the bridge, flushes the registry and closes the log file.
func (h *Host) Close(ctx context.Context) error {
	var errs []error
	if err := h.Bridge.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop bridge: %w", err))
	}
	if h.rec != nil {
		h.rec.Close()
	}
	if h.DB != nil {
		if err := h.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}
	h.Feed.Close()
	h.Log.Info("overlay stopped")
	h.closeLog()
	return errors.Join(errs...)
}

func (h *Host) closeLog() {
	if h.logFile != nil {
		h.logFile.Close()
	}
}
