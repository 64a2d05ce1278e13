package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrNetworkUnavailable is reported when no broadcast address can be
	// resolved. It is recoverable: the user can join a network and retry.
	ErrNetworkUnavailable = errors.New("no broadcast address available (is the wireless interface connected?)")

	// ErrMalformedAnnouncement is returned by ParseAnnouncement for payloads
	// that are not of the form DEVICENAME:<name>. The listener drops these.
	ErrMalformedAnnouncement = errors.New("malformed announcement")
)

// SocketError reports a bind, send or receive failure on a UDP socket.
// It is fatal to the task that owns the socket.
type SocketError struct {
	Op   string // "bind", "send" or "receive"
	Addr string // Local or remote address involved, if known
	Err  error
}

// Error implements the error interface
func (e *SocketError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("udp %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("udp %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SocketError) Unwrap() error {
	return e.Err
}

// IsSocketError checks if an error is (or wraps) a SocketError
func IsSocketError(err error) bool {
	var sockErr *SocketError
	return errors.As(err, &sockErr)
}
