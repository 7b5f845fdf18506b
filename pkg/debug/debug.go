// Package debug gates very verbose per-frame logging (faces, pupils,
// calibration) behind a process-wide switch.
package debug

import (
	"log/slog"
	"sync/atomic"
)

var tracking atomic.Bool

// SetTracking turns per-frame logs on or off. Commands enable it with --debug.
func SetTracking(on bool) {
	tracking.Store(on)
}

// Tracking reports whether per-frame logs are on.
func Tracking() bool {
	return tracking.Load()
}

// Track logs msg at debug level on the default logger when tracking is on.
func Track(msg string, args ...any) {
	if tracking.Load() {
		slog.Debug(msg, args...)
	}
}
