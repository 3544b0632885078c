//go:build uifrontend

package main

import (
	"fmt"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"github.com/xfeldman/overlay/internal/host"
)

// trayState is what the tray shows. It is rebuilt from host.Status
// whenever an agent-status or agent-error event passes through the feed.
type trayState struct {
	status    host.Status
	lastError string
}

// setupSystemTray configures the system tray icon, menu, and window behavior.
//
// Behavior:
//   - Left-click tray icon → toggle window visibility
//   - Right-click → show menu with connection state + quit
//   - Close window (X button) → hide to tray, app stays running
//   - "Quit Overlay" in menu → app exits, agent bridge stops
func setupSystemTray(app *application.App, window *application.WebviewWindow, h *host.Host) *application.SystemTray {
	tray := app.SystemTray.New()

	// Template icon: macOS tints it for dark/light mode automatically.
	tray.SetTemplateIcon(generateTrayIcon(false))
	tray.SetTooltip(h.Config.Window.Title)
	tray.SetMenu(buildTrayMenu(app, window, trayState{status: h.Status()}))

	tray.OnClick(func() {
		if window.IsVisible() {
			window.Hide()
		} else {
			window.Show()
		}
	})

	// Intercept window close → hide to tray instead of quitting.
	window.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		window.Hide()
	})

	return tray
}

// updateTray refreshes icon, tooltip and menu for st.
func updateTray(app *application.App, tray *application.SystemTray, window *application.WebviewWindow, title string, st trayState) {
	tray.SetTemplateIcon(generateTrayIcon(st.status.Connected))
	tray.SetTooltip(fmt.Sprintf("%s: %s", title, statusLine(st.status)))
	tray.SetMenu(buildTrayMenu(app, window, st))
}

func buildTrayMenu(app *application.App, window *application.WebviewWindow, st trayState) *application.Menu {
	menu := application.NewMenu()

	menu.Add("Show Overlay").OnClick(func(ctx *application.Context) {
		window.Show()
		window.Focus()
	})

	menu.AddSeparator()
	menu.Add(statusIndicator(st.status) + " " + statusLine(st.status)).SetEnabled(false)
	if st.status.Listening {
		menu.Add("ws://" + st.status.Addr).SetEnabled(false)
	}
	if st.lastError != "" {
		menu.Add(st.lastError).SetEnabled(false)
	}

	menu.AddSeparator()
	menu.Add("Quit Overlay").OnClick(func(ctx *application.Context) {
		app.Quit()
	})

	return menu
}

func statusLine(st host.Status) string {
	switch {
	case st.Connected:
		return "Agent connected"
	case st.Listening:
		return "Waiting for agent"
	default:
		return "Bridge offline"
	}
}

// statusIndicator returns a Unicode dot/circle for the bridge state.
func statusIndicator(st host.Status) string {
	switch {
	case st.Connected:
		return "\u25CF" // ●
	case st.Listening:
		return "\u25CB" // ○
	default:
		return "\u2298" // ⊘
	}
}
