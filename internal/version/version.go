// Package version holds build-time version info injected via ldflags.
//
// Build with:
//
//	go build -ldflags "-X github.com/xfeldman/overlay/internal/version.version=v0.1.0"
package version

import "runtime"

// version is set at build time via -ldflags.
var version = "dev"

// Version returns the build version string.
func Version() string {
	return version
}

// String returns the version line printed by --version.
func String(name string) string {
	return name + " " + version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
