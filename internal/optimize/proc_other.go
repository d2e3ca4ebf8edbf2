//go:build !linux

package optimize

import (
	"fmt"
	"runtime"
)

func readTCPSysctl(name string) (string, error) {
	return "", fmt.Errorf("tcp parameters not readable on %s", runtime.GOOS)
}

func readTCPRetransmits() (uint64, error) {
	return 0, fmt.Errorf("tcp counters not readable on %s", runtime.GOOS)
}
