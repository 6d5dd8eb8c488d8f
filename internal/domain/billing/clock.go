package billing

import "time"

// now is the package time source. Tests swap it for a fixed instant so
// document timestamps are deterministic.
var now = time.Now

// SetNow overrides the time source and returns a func that restores the
// previous one.
func SetNow(fn func() time.Time) func() {
	prev := now
	now = fn
	return func() { now = prev }
}
