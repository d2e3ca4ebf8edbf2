package probe

import "errors"

// Probe-related errors.
var (
	// ErrTimeout indicates the probe timed out waiting for a response
	ErrTimeout = errors.New("probe timeout")

	// ErrPermissionDenied indicates insufficient privileges for raw sockets
	ErrPermissionDenied = errors.New("permission denied: raw socket requires elevated privileges")

	// ErrSocketClosed indicates the socket has been closed
	ErrSocketClosed = errors.New("socket closed")

	// ErrInvalidTTL indicates the TTL value is out of range
	ErrInvalidTTL = errors.New("TTL must be between 1 and 255")

	// ErrInvalidTarget indicates the destination is not an IPv4 address
	ErrInvalidTarget = errors.New("target must be an IPv4 address")
)

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsPermissionError returns true if the error is a permission error.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
