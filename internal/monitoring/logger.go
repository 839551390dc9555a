package monitoring

import (
	"log"
	"time"

	"github.com/kahfeatures/kahfeatures/internal/timeutil"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Clock times the Timed spans. Tests may swap in a timeutil.MockClock.
var Clock timeutil.Clock = timeutil.RealClock{}

// Timed logs label with the elapsed time when the returned func is called.
//
//	defer monitoring.Timed("region filter")()
func Timed(label string) func() {
	clock := Clock
	start := clock.Now()
	return func() {
		Logf("%s took %s", label, clock.Since(start).Round(time.Microsecond))
	}
}
