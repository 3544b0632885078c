//go:build uifrontend

package main

import (
	"context"
	"errors"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/xfeldman/overlay/internal/bridge"
	"github.com/xfeldman/overlay/internal/feed"
	"github.com/xfeldman/overlay/internal/host"
	"github.com/xfeldman/overlay/internal/registry"
)

const shutdownTimeout = 5 * time.Second

// AgentService is bound into the webview. Its exported methods are the
// only way the page talks to the agent bridge; events flow back through
// app.Event as agent-status, agent-message and agent-error.
type AgentService struct {
	host   *host.Host
	app    *application.App
	window *application.WebviewWindow
	tray   *application.SystemTray
	unsub  func()
}

// Send forwards the user's input to the connected agent. The returned
// error text is shown to the user as is.
func (s *AgentService) Send(content string) error {
	if err := s.host.Send(content); err != nil {
		return errors.New(bridge.UserMessage(err))
	}
	return nil
}

// Status reports the bridge address and whether an agent is connected.
func (s *AgentService) Status() host.Status {
	return s.host.Status()
}

// Recent returns the last n bridge events so a freshly loaded page can
// rebuild its transcript.
func (s *AgentService) Recent(n int) []feed.Event {
	return s.host.Feed.Recent(n)
}

// Sessions returns recent agent connection records, newest first.
func (s *AgentService) Sessions(limit int) ([]*registry.Session, error) {
	return s.host.Sessions(limit)
}

// ServiceStartup binds the agent bridge once the application runs, so
// every event reaches the frontend through the event bus.
func (s *AgentService) ServiceStartup(ctx context.Context, _ application.ServiceOptions) error {
	events, unsub := s.host.Feed.Subscribe()
	s.unsub = unsub
	go s.forward(events)

	if err := s.host.Start(ctx); err != nil {
		// Already surfaced to the page as agent-error.
		s.host.Log.Warn("running without agent bridge", "error", err)
	}
	return nil
}

// ServiceShutdown stops the bridge and flushes the registry.
func (s *AgentService) ServiceShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.unsub != nil {
		s.unsub()
	}
	return s.host.Close(ctx)
}

// forward re-emits feed events on the Wails event bus and keeps the tray
// in step with the connection state.
func (s *AgentService) forward(events <-chan feed.Event) {
	st := trayState{status: s.host.Status()}
	title := s.host.Config.Window.Title
	for ev := range events {
		s.app.Event.Emit(ev.Name, ev.Payload)

		switch ev.Name {
		case bridge.EventStatus:
			st.status = s.host.Status()
			st.lastError = ""
		case bridge.EventError:
			st.status = s.host.Status()
			st.lastError, _ = ev.Payload.(string)
		default:
			continue
		}
		updateTray(s.app, s.tray, s.window, title, st)
	}
}
