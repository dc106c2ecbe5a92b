package transceiver

import "errors"

// Rejection reasons for SetLocal, per spec §4.3.3/§7. Each is returned
// wrapped with additional context; callers should compare with errors.Is.
var (
	// ErrModeViolation is returned by SetLocal on a ReceiveOnly
	// transceiver, or by SetRemote on a SendOnly one.
	ErrModeViolation = errors.New("transceiver: mode violation")
	// ErrFutureTimestamp is returned when a local update's timestamp is
	// strictly after the current wall clock.
	ErrFutureTimestamp = errors.New("transceiver: timestamp is in the future")
	// ErrNonMonotonic is returned when a local update's timestamp is
	// older than the last accepted local timestamp.
	ErrNonMonotonic = errors.New("transceiver: timestamp is older than the last accepted update")
)
