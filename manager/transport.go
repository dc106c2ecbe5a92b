package manager

import "github.com/quilvr/gssync/gsobject"

// EncodedMessage is a single encoded frame crossing the transport
// boundary in either direction: the populated region of an encoder's
// buffer, stamped with the author that produced (or, inbound, sent) it.
type EncodedMessage struct {
	Bytes  []byte
	Author gsobject.AuthorId
}

// Transport is the wire boundary a Manager drives. Implementations are
// best-effort: Send may drop a message, and a Manager never blocks
// waiting on one.
type Transport interface {
	// Send transmits an already-encoded frame. A non-nil error is
	// logged by the manager and otherwise ignored; it is never
	// propagated back to the transceiver that produced the message.
	Send(EncodedMessage) error
	// LocalIdentifier is the author id the manager stamps on every
	// frame it encodes for this transport.
	LocalIdentifier() uint32
}
