package transport

import (
	"errors"
	"syscall"
)

// isConnReset reports whether err unwraps to ECONNRESET, the one socket
// error spec.md §4.3 calls out by name as always mapping to
// ClosedTransport rather than the generic TransportError.
func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}
