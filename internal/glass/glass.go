// Package glass selects the native translucency treatment of the overlay
// window for the host platform.
//
// Effects only describe the window surface; the desktop shell maps a
// Surface onto its window options. There is no shared state with the
// agent bridge.
package glass

import "runtime"

// Backdrop is the native material drawn behind the webview.
type Backdrop int

const (
	BackdropOpaque      Backdrop = iota
	BackdropVibrancy             // macOS NSVisualEffectView, always active
	BackdropAcrylic              // Windows acrylic blur
	BackdropTranslucent          // compositor-provided transparency (Linux)
)

func (b Backdrop) String() string {
	switch b {
	case BackdropVibrancy:
		return "vibrancy"
	case BackdropAcrylic:
		return "acrylic"
	case BackdropTranslucent:
		return "translucent"
	default:
		return "opaque"
	}
}

// RGBA is an 8-bit colour with alpha.
type RGBA struct {
	R, G, B, A uint8
}

// Surface is the window appearance an Effect edits.
type Surface struct {
	Backdrop Backdrop

	// Tint is painted over the backdrop. Zero alpha means none.
	Tint RGBA

	// Background is the window background behind the webview.
	Background RGBA

	// Shadow draws the native window shadow.
	Shadow bool

	// HideTitleBar removes the title bar chrome, keeping a drag region.
	HideTitleBar bool

	// Floating keeps the window above normal windows and on every space.
	Floating bool

	// CornerRadius in points, where the platform supports it.
	CornerRadius float64
}

// Opaque returns the plain surface used when no effect is applied.
func Opaque() Surface {
	return Surface{
		Backdrop:   BackdropOpaque,
		Background: RGBA{R: 255, G: 255, B: 255, A: 255},
		Shadow:     true,
	}
}

// Effect applies and removes one platform's translucency treatment.
type Effect interface {
	Name() string
	Apply(s *Surface)
	Remove(s *Surface)
}

// Configure returns the surface for a window with the effect switched on
// or off. Switching off goes through Remove so the effect decides what its
// opaque state looks like.
func Configure(e Effect, enabled bool) Surface {
	s := Opaque()
	if enabled {
		e.Apply(&s)
	} else {
		e.Remove(&s)
	}
	return s
}

// ForPlatform returns the effect for the running OS.
func ForPlatform() Effect {
	return For(runtime.GOOS)
}

// For returns the effect for goos. Unknown platforms get a no-op effect.
func For(goos string) Effect {
	switch goos {
	case "darwin":
		return macEffect{}
	case "windows":
		return windowsEffect{}
	case "linux":
		return linuxEffect{}
	default:
		return noEffect{}
	}
}

// macEffect uses vibrancy with the most transparent material, kept active
// when the window loses focus so the backdrop keeps updating.
type macEffect struct{}

func (macEffect) Name() string { return "macos-vibrancy" }

func (macEffect) Apply(s *Surface) {
	s.Backdrop = BackdropVibrancy
	s.Background = RGBA{}
	s.Shadow = false
	s.HideTitleBar = true
	s.Floating = true
	s.CornerRadius = 12
}

func (macEffect) Remove(s *Surface) { *s = Opaque() }

// windowsEffect uses acrylic with a subtle dark tint.
type windowsEffect struct{}

func (windowsEffect) Name() string { return "windows-acrylic" }

func (windowsEffect) Apply(s *Surface) {
	s.Backdrop = BackdropAcrylic
	s.Tint = RGBA{R: 20, G: 20, B: 20, A: 60}
	s.Background = RGBA{}
}

func (windowsEffect) Remove(s *Surface) { *s = Opaque() }

// linuxEffect makes the window transparent and leaves blur to the
// compositor (KWin, Mutter, picom); there is no portable blur API.
type linuxEffect struct{}

func (linuxEffect) Name() string { return "linux-compositor" }

func (linuxEffect) Apply(s *Surface) {
	s.Backdrop = BackdropTranslucent
	s.Background = RGBA{}
}

func (linuxEffect) Remove(s *Surface) { *s = Opaque() }

type noEffect struct{}

func (noEffect) Name() string      { return "none" }
func (noEffect) Apply(*Surface)    {}
func (noEffect) Remove(s *Surface) { *s = Opaque() }
