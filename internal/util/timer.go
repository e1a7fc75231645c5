// Package util holds small helpers shared by the pipeline and commands.
package util

import "time"

// Stopwatch measures elapsed time from its creation.
type Stopwatch struct {
	started time.Time
}

// NewStopwatch returns a stopwatch running from the current time.
func NewStopwatch() Stopwatch {
	return Stopwatch{started: time.Now()}
}

// Elapsed returns the duration since the stopwatch started. The zero value
// reports zero.
func (s Stopwatch) Elapsed() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}
