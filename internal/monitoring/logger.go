package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or embedding hosts can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// debugEnabled gates Debugf. Off by default; the per-cell hysteresis traces
// are far too chatty for a flight log.
var debugEnabled bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug enables or disables Debugf output.
func SetDebug(enabled bool) { debugEnabled = enabled }

// DebugEnabled reports whether debug tracing is currently on.
func DebugEnabled() bool { return debugEnabled }

// Debugf logs through Logf only when debug tracing is enabled. Callers may
// still want to avoid building expensive arguments when DebugEnabled is false.
func Debugf(format string, v ...interface{}) {
	if debugEnabled {
		Logf(format, v...)
	}
}
