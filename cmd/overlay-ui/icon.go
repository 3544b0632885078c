//go:build uifrontend

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// generateTrayIcon creates a 22x22 speech-bubble PNG for the system tray.
// On macOS this is used as a template icon, so the system tints it for
// dark/light mode (black shape on transparent background).
//
// When connected is false the bubble is drawn as an outline.
func generateTrayIcon(connected bool) []byte {
	const size = 22
	img := image.NewNRGBA(image.Rect(0, 0, size, size))

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px := float64(x) + 0.5
			py := float64(y) + 0.5

			if !isInBubble(px, py, 0) {
				continue
			}
			if connected || !isInBubble(px, py, 1.6) {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// isInBubble reports whether (px, py) lies inside the bubble shrunk by
// inset points.
//
// Bubble geometry (22x22 canvas):
//
//	Body: rounded rectangle from (2, 3) to (20, 16), corner radius 4
//	Tail: triangle below the body's lower left, tip at (6, 20)
func isInBubble(px, py, inset float64) bool {
	const (
		left, top, right, bottom = 2.0, 3.0, 20.0, 16.0
		radius                   = 4.0
	)
	l, t, r, b := left+inset, top+inset, right-inset, bottom-inset
	rad := math.Max(radius-inset, 0)

	if px >= l && px <= r && py >= t && py <= b {
		// Clip the corners to arcs.
		cx := math.Min(math.Max(px, l+rad), r-rad)
		cy := math.Min(math.Max(py, t+rad), b-rad)
		dx, dy := px-cx, py-cy
		return dx*dx+dy*dy <= rad*rad
	}

	if inset > 0 {
		return false
	}
	// Tail: y in (bottom, 20], narrowing from x in [5, 11] to the tip.
	const tipY = 20.0
	if py > bottom && py <= tipY {
		f := (py - bottom) / (tipY - bottom)
		return px >= 5+f && px <= 11-5*f
	}
	return false
}
