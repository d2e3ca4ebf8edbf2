//go:build !linux

package monitor

import (
	"fmt"
	"runtime"
)

func readCounters() ([]Counters, error) {
	return nil, fmt.Errorf("interface counters not supported on %s", runtime.GOOS)
}
