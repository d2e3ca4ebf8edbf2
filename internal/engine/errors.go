package engine

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of an engine error. The set is closed:
// every error returned by the engine carries exactly one of these.
type Code int

const (
	CodeSuccess Code = iota
	CodeInvalidParameter
	CodePacketTooLarge
	CodePacketParseFailed
	CodeAllocationFailure
	CodePermissionDenied
	CodeSocketError
	CodeTimeout
	CodeEngineClosed
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeInvalidParameter:
		return "invalid_parameter"
	case CodePacketTooLarge:
		return "packet_too_large"
	case CodePacketParseFailed:
		return "packet_parse_failed"
	case CodeAllocationFailure:
		return "allocation_failure"
	case CodePermissionDenied:
		return "permission_denied"
	case CodeSocketError:
		return "socket_error"
	case CodeTimeout:
		return "timeout"
	case CodeEngineClosed:
		return "engine_closed"
	default:
		return "unknown"
	}
}

// Engine errors. Each sentinel maps to one Code; call sites wrap them with
// fmt.Errorf("...: %w", err) so errors.Is keeps working through the chain.
var (
	// ErrInvalidParameter indicates a malformed argument: bad IP string,
	// zero-length input, or an output buffer too small for the encoding
	ErrInvalidParameter = &Error{code: CodeInvalidParameter, msg: "invalid parameter"}

	// ErrBufferTooSmall indicates the destination slice cannot hold the
	// packet being encoded
	ErrBufferTooSmall = &Error{code: CodeInvalidParameter, msg: "buffer too small"}

	// ErrPacketTooLarge indicates the payload would overflow the maximum
	// IPv4 packet size
	ErrPacketTooLarge = &Error{code: CodePacketTooLarge, msg: "packet exceeds maximum size"}

	// ErrPacketParseFailed indicates truncated or malformed received bytes
	ErrPacketParseFailed = &Error{code: CodePacketParseFailed, msg: "packet parse failed"}

	// ErrAllocationFailure indicates the buffer pool backing memory could
	// not be obtained
	ErrAllocationFailure = &Error{code: CodeAllocationFailure, msg: "allocation failure"}

	// ErrPoolExhausted indicates the buffer pool free set is empty;
	// callers should back off and retry, never spin inside the pool
	ErrPoolExhausted = &Error{code: CodeAllocationFailure, msg: "buffer pool exhausted"}

	// ErrPoolClosed indicates use of a destroyed buffer pool
	ErrPoolClosed = &Error{code: CodeAllocationFailure, msg: "buffer pool closed"}

	// ErrBadHandle indicates a buffer handle outside the pool's range or
	// one that is not currently checked out
	ErrBadHandle = &Error{code: CodeInvalidParameter, msg: "invalid buffer handle"}

	// ErrDoubleRelease indicates a handle was released twice
	ErrDoubleRelease = &Error{code: CodeInvalidParameter, msg: "buffer released twice"}

	// ErrPermissionDenied indicates raw sockets require elevated privileges
	ErrPermissionDenied = &Error{code: CodePermissionDenied, msg: "permission denied: raw sockets require elevated privileges"}

	// ErrSocketError indicates an OS-level transport failure
	ErrSocketError = &Error{code: CodeSocketError, msg: "socket error"}

	// ErrTimeout indicates no matching reply arrived within the deadline
	ErrTimeout = &Error{code: CodeTimeout, msg: "receive timeout"}

	// ErrEngineClosed indicates an operation on an engine after Close
	ErrEngineClosed = &Error{code: CodeEngineClosed, msg: "engine closed"}
)

// Error is the concrete engine error type carrying a Code discriminant.
type Error struct {
	code Code
	msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.msg
}

// Code returns the error's failure class.
func (e *Error) Code() Code {
	return e.code
}

// CodeOf extracts the Code from any error in err's chain.
// Returns CodeSuccess for nil and CodeSocketError for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var ee *Error
	if errors.As(err, &ee) {
		return ee.code
	}
	return CodeSocketError
}

// IsTimeout returns true if the error indicates a receive timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsPermission returns true if the error is a raw-socket privilege failure.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsExhausted returns true if the error signals an empty buffer pool.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// errorf wraps a sentinel with call-site detail.
func errorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, sentinel)...)
}
