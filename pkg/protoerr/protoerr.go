// Package protoerr holds the closed error taxonomy shared by pkg/protocol,
// pkg/transport, and pkg/manager, per spec.md §7. Errors are exported,
// wrappable values/types so callers can distinguish kinds with errors.Is
// and errors.As across package boundaries, the way
// pascaldekloe-part5/session/tcp.go keeps a small closed set of
// package-level sentinel errors for its own protocol.
package protoerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap these with fmt.Errorf("...: %w", err) for
// additional context; errors.Is still matches the sentinel.
var (
	// ErrTransport is the base kind for transport-layer failures.
	ErrTransport = errors.New("protoerr: transport error")

	// ErrClosedTransport indicates the transport was closed or the peer
	// closed it; the caller must reconnect.
	ErrClosedTransport = errors.New("protoerr: closed transport")

	// ErrTransportTimeout indicates no bytes arrived within the read or
	// write budget; the caller may retry.
	ErrTransportTimeout = errors.New("protoerr: transport timeout")

	// ErrProtocol indicates a malformed frame that isn't a checksum
	// failure (invalid data type, short read, out-of-range field).
	ErrProtocol = errors.New("protoerr: protocol error")

	// ErrChecksumMismatch indicates the trailing CRC didn't validate.
	ErrChecksumMismatch = errors.New("protoerr: checksum mismatch")

	// ErrMissingHeader indicates the first byte read wasn't the 0x05
	// header literal.
	ErrMissingHeader = errors.New("protoerr: missing header")
)

// UnregisteredCallbackError is returned by the manager's Receive when no
// handler is registered for the decoded frame's fingerprint. It carries
// the frame so the caller can still observe it.
type UnregisteredCallbackError struct {
	Frame fmt.Stringer
}

func (e *UnregisteredCallbackError) Error() string {
	return fmt.Sprintf("protoerr: unregistered callback for frame: %s", e.Frame)
}

// NewUnregisteredCallback wraps frame (anything with a String method,
// typically frame.Frame) in an *UnregisteredCallbackError.
func NewUnregisteredCallback(f fmt.Stringer) error {
	return &UnregisteredCallbackError{Frame: f}
}
