// Package debug provides global switches for verbose per-frame diagnostics
package debug

import (
	"fmt"
	"sync/atomic"

	"github.com/teslashibe/go-facerig/internal/log"
)

var (
	enabled  atomic.Bool
	tracking atomic.Bool
)

// SetEnabled turns general debug logging on or off
func SetEnabled(on bool) { enabled.Store(on) }

// Enabled reports whether debug logging is active
func Enabled() bool { return enabled.Load() }

// SetTracking turns per-frame rig traces on or off. These are very verbose.
func SetTracking(on bool) { tracking.Store(on) }

// Tracking reports whether per-frame traces are shown
func Tracking() bool { return tracking.Load() }

// Log emits a message only if debug mode is enabled
func Log(format string, args ...any) {
	if enabled.Load() {
		log.Info(fmt.Sprintf(format, args...))
	}
}

// TrackLog emits a message only if tracking debug mode is enabled
func TrackLog(format string, args ...any) {
	if tracking.Load() {
		log.Info(fmt.Sprintf(format, args...))
	}
}
