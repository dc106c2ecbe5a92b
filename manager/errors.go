package manager

import "errors"

// ErrRegistrationConflict is returned by Register when an identity or
// raw tag is already bound to a transceiver.
var ErrRegistrationConflict = errors.New("manager: registration conflict")

// ErrNilIdentity is returned by Register when asked to bind a zero
// ObjectId, which the wire format reserves for untimed/unidentified
// variants and can never route to.
var ErrNilIdentity = errors.New("manager: identity must not be zero")
