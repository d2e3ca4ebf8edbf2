package optimize

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseSNMPField pulls one counter out of /proc/net/snmp style text,
// where a "Proto: name name ..." header line is followed by a
// "Proto: value value ..." line.
func parseSNMPField(r io.Reader, proto, field string) (uint64, error) {
	prefix := proto + ":"
	scanner := bufio.NewScanner(r)

	column := -1
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(line[len(prefix):])

		if column < 0 {
			for i, name := range fields {
				if name == field {
					column = i
					break
				}
			}
			if column < 0 {
				return 0, fmt.Errorf("%s counters have no %s field", proto, field)
			}
			continue
		}

		if column >= len(fields) {
			return 0, fmt.Errorf("%s counter row too short", proto)
		}
		return strconv.ParseUint(fields[column], 10, 64)
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading snmp counters: %w", err)
	}
	return 0, fmt.Errorf("%s counters not found", proto)
}
