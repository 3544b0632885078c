//go:build uifrontend

package main

import (
	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/xfeldman/overlay/internal/config"
	"github.com/xfeldman/overlay/internal/glass"
)

// windowOptions maps the configured window and the platform glass effect
// onto Wails window options.
func windowOptions(cfg config.WindowConfig, effect glass.Effect) application.WebviewWindowOptions {
	s := glass.Configure(effect, cfg.Glass)

	opts := application.WebviewWindowOptions{
		Name:             "overlay",
		Title:            cfg.Title,
		URL:              "/",
		Width:            cfg.Width,
		Height:           cfg.Height,
		AlwaysOnTop:      cfg.AlwaysOnTop,
		BackgroundColour: rgba(s.Background),
		Mac: application.MacWindow{
			Backdrop:      application.MacBackdropNormal,
			TitleBar:      application.MacTitleBarDefault,
			DisableShadow: !s.Shadow,
		},
	}

	if s.HideTitleBar {
		opts.Mac.TitleBar = application.MacTitleBarHiddenInset
		opts.Mac.InvisibleTitleBarHeight = 38 // drag zone above the transcript
	}
	if s.Floating && cfg.AlwaysOnTop {
		opts.Mac.WindowLevel = application.MacWindowLevelFloating
	}

	switch s.Backdrop {
	case glass.BackdropVibrancy:
		opts.BackgroundType = application.BackgroundTypeTranslucent
		opts.Mac.Backdrop = application.MacBackdropTranslucent
	case glass.BackdropAcrylic:
		opts.BackgroundType = application.BackgroundTypeTranslucent
		opts.Windows.BackdropType = application.Acrylic
		if s.Tint.A > 0 {
			opts.BackgroundColour = rgba(s.Tint)
		}
	case glass.BackdropTranslucent:
		opts.BackgroundType = application.BackgroundTypeTransparent
		opts.Linux.WindowIsTranslucent = true
	default:
		opts.BackgroundType = application.BackgroundTypeSolid
	}

	return opts
}

func rgba(c glass.RGBA) application.RGBA {
	return application.NewRGBA(c.R, c.G, c.B, c.A)
}
