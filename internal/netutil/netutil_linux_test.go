//go:build linux

package netutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexIPv4(t *testing.T) {
	ip, err := parseHexIPv4("0100000A")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip.String())

	ip, err = parseHexIPv4("0101A8C0")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", ip.String())

	_, err = parseHexIPv4("nothex")
	assert.Error(t, err)
}
