// Package ui embeds the overlay page served inside the desktop webview.
package ui

import "embed"

// Frontend holds the static page from ui/frontend/dist/.
//
//go:embed all:frontend/dist
var Frontend embed.FS
