//go:build uifrontend

// overlay-ui is the translucent desktop overlay for a local AI agent.
//
// The agent dials ws://127.0.0.1:19823 and exchanges JSON envelopes with
// the bridge; the page in the webview receives them as agent-status,
// agent-message and agent-error events and replies through the bound
// AgentService.
package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"
	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/xfeldman/overlay/internal/config"
	"github.com/xfeldman/overlay/internal/glass"
	"github.com/xfeldman/overlay/internal/host"
	"github.com/xfeldman/overlay/internal/version"
	uiFS "github.com/xfeldman/overlay/ui"
)

func main() {
	configPath := pflag.String("config", config.DefaultPath(), "path to the YAML config file")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.String("overlay-ui"))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	h, err := host.New(cfg, os.Stderr)
	if err != nil {
		fatalf("init: %v", err)
	}
	h.Log.Info("overlay starting", "version", version.Version(), "config", *configPath)

	distFS, err := fs.Sub(uiFS.Frontend, "frontend/dist")
	if err != nil {
		fatalf("embedded frontend not found: %v", err)
	}

	svc := &AgentService{host: h}
	app := application.New(application.Options{
		Name:        cfg.Window.Title,
		Description: "Translucent overlay for a local AI agent",
		Logger:      h.Log.With("component", "wails"),
		Services: []application.Service{
			application.NewService(svc),
		},
		Assets: application.AssetOptions{
			Handler: application.AssetFileServerFS(distFS),
		},
		Mac: application.MacOptions{
			ActivationPolicy: application.ActivationPolicyAccessory,
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	effect := glass.ForPlatform()
	window := app.Window.NewWithOptions(windowOptions(cfg.Window, effect))
	h.Log.Debug("window created", "glass", cfg.Window.Glass, "effect", effect.Name())

	svc.app = app
	svc.window = window
	svc.tray = setupSystemTray(app, window, h)

	if err := app.Run(); err != nil {
		h.Log.Error("application exited", "error", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "overlay-ui: "+format+"\n", args...)
	os.Exit(1)
}
