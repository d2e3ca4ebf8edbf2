package monitor

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval indicates a sampling interval below 100ms.
var ErrInvalidInterval = errors.New("interval must be at least 100ms")

// UnknownInterfaceError indicates the configured interface does not
// exist on this host.
type UnknownInterfaceError struct {
	Name string
}

func (e *UnknownInterfaceError) Error() string {
	return fmt.Sprintf("unknown interface %q", e.Name)
}
