// Package monitoring provides the package-level diagnostic logger shared by the
// telemetry packages. It is intentionally tiny: a replaceable Printf-style hook,
// so embedding applications can redirect or silence library logging without a
// logging framework dependency.
package monitoring

import "log"

// Logf is the diagnostic logger used across the module. It defaults to
// log.Printf and may be replaced with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
