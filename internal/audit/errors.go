package audit

import "errors"

var (
	// ErrNoTarget indicates no audit target was configured.
	ErrNoTarget = errors.New("audit target is required")

	// ErrInvalidTimeout indicates a timeout below the usable floor.
	ErrInvalidTimeout = errors.New("timeout must be at least 10ms")

	// ErrInvalidPort indicates a zero port in the port list.
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrNoChecks indicates every check was disabled.
	ErrNoChecks = errors.New("at least one check must be enabled")
)
