package scan

import (
	"errors"
	"os"
	"runtime"
)

var (
	// ErrInvalidTimeout indicates a timeout below the usable floor.
	ErrInvalidTimeout = errors.New("timeout must be at least 10ms")

	// ErrInvalidConcurrency indicates a worker count outside 1-1024.
	ErrInvalidConcurrency = errors.New("concurrency must be between 1 and 1024")

	// ErrInvalidPort indicates a zero port in the port list.
	ErrInvalidPort = errors.New("port must be between 1 and 65535")
)

// rawSocketPermitted mirrors the engine's privilege gate so the scanner
// can pick its probing strategy up front instead of discovering the
// downgrade on the first send.
func rawSocketPermitted() error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if os.Geteuid() != 0 {
		return os.ErrPermission
	}
	return nil
}
