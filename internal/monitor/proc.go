package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// /proc/net/dev columns per interface, after the name: 8 receive
// counters then 8 transmit counters.
const (
	devFieldRxBytes   = 0
	devFieldRxPackets = 1
	devFieldRxErrs    = 2
	devFieldRxDrop    = 3
	devFieldTxBytes   = 8
	devFieldTxPackets = 9
	devFieldTxErrs    = 10
	devFieldTxDrop    = 11

	devFieldCount = 16
)

// parseNetDev reads interface counter rows in /proc/net/dev format.
// Header lines and rows that do not parse are skipped.
func parseNetDev(r io.Reader) ([]Counters, error) {
	now := time.Now()
	var rows []Counters

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		fields := strings.Fields(line[idx+1:])
		if name == "" || len(fields) < devFieldCount {
			continue
		}

		vals := make([]uint64, devFieldCount)
		ok := true
		for i := 0; i < devFieldCount; i++ {
			v, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}

		rows = append(rows, Counters{
			Interface:   name,
			BytesRecv:   vals[devFieldRxBytes],
			PacketsRecv: vals[devFieldRxPackets],
			ErrsRecv:    vals[devFieldRxErrs],
			DropsRecv:   vals[devFieldRxDrop],
			BytesSent:   vals[devFieldTxBytes],
			PacketsSent: vals[devFieldTxPackets],
			ErrsSent:    vals[devFieldTxErrs],
			DropsSent:   vals[devFieldTxDrop],
			At:          now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading interface counters: %w", err)
	}
	return rows, nil
}
