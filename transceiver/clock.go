package transceiver

import "time"

// Clock abstracts wall-clock access so retransmit/expiry math and the
// monotonic-timestamp checks can be driven deterministically in tests,
// instead of depending on real sleeps.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock used when none is supplied.
var SystemClock Clock = systemClock{}
