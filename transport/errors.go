package transport

import "errors"

// ErrClosed is returned by Send once the UDP transport has been closed.
var ErrClosed = errors.New("transport: closed")
