package netutil

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCIDRSingleHost(t *testing.T) {
	hosts, err := ExpandCIDR("10.0.0.5")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "10.0.0.5", hosts[0].String())
}

func TestExpandCIDRSlash30(t *testing.T) {
	hosts, err := ExpandCIDR("192.168.1.0/30")
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "192.168.1.1", hosts[0].String())
	assert.Equal(t, "192.168.1.2", hosts[1].String())
}

func TestExpandCIDRSlash32(t *testing.T) {
	hosts, err := ExpandCIDR("172.16.0.1/32")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "172.16.0.1", hosts[0].String())
}

func TestExpandCIDRSlash31(t *testing.T) {
	hosts, err := ExpandCIDR("10.1.2.4/31")
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "10.1.2.4", hosts[0].String())
	assert.Equal(t, "10.1.2.5", hosts[1].String())
}

func TestExpandCIDRSlash24ExcludesNetworkAndBroadcast(t *testing.T) {
	hosts, err := ExpandCIDR("192.168.5.0/24")
	require.NoError(t, err)
	require.Len(t, hosts, 254)
	assert.Equal(t, "192.168.5.1", hosts[0].String())
	assert.Equal(t, "192.168.5.254", hosts[253].String())
}

func TestExpandCIDRErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"empty", ""},
		{"garbage", "not-an-ip"},
		{"ipv6", "2001:db8::/64"},
		{"ipv6 host", "2001:db8::1"},
		{"bad prefix", "10.0.0.0/33"},
		{"too wide", "10.0.0.0/8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandCIDR(tt.target)
			assert.Error(t, err)
		})
	}
}

func TestParsePorts(t *testing.T) {
	ports, err := ParsePorts("80,443,8000-8010")
	require.NoError(t, err)
	require.Len(t, ports, 13)
	assert.Equal(t, uint16(80), ports[0])
	assert.Equal(t, uint16(443), ports[1])
	assert.Equal(t, uint16(8000), ports[2])
	assert.Equal(t, uint16(8010), ports[12])
}

func TestParsePortsDedupeAndSort(t *testing.T) {
	ports, err := ParsePorts("443, 80, 443,80-82")
	require.NoError(t, err)
	assert.Equal(t, []uint16{80, 81, 82, 443}, ports)
}

func TestParsePortsErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"only commas", ",,,"},
		{"not a number", "http"},
		{"zero", "0"},
		{"too large", "65536"},
		{"reversed range", "100-50"},
		{"bad range bound", "80-abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePorts(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestCommonPorts(t *testing.T) {
	ports := CommonPorts()
	require.Len(t, ports, 16)
	assert.Contains(t, ports, uint16(22))
	assert.Contains(t, ports, uint16(443))
	assert.Contains(t, ports, uint16(8443))
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "SSH", ServiceName(22))
	assert.Equal(t, "HTTPS", ServiceName(443))
	assert.Equal(t, "RDP", ServiceName(3389))
	assert.Equal(t, "", ServiceName(9999))
}

func TestRiskyPorts(t *testing.T) {
	assert.True(t, IsRiskyPort(23))
	assert.True(t, IsRiskyPort(445))
	assert.False(t, IsRiskyPort(22))
	assert.False(t, IsRiskyPort(443))

	ports := RiskyPorts()
	require.Len(t, ports, 8)
	assert.Equal(t, uint16(21), ports[0])
	assert.Equal(t, uint16(5900), ports[len(ports)-1])
}

func TestFormatBandwidth(t *testing.T) {
	assert.Equal(t, "512.00 B/s", FormatBandwidth(512))
	assert.Equal(t, "1.00 KB/s", FormatBandwidth(1024))
	assert.Equal(t, "1.50 MB/s", FormatBandwidth(1.5*1024*1024))
	assert.Equal(t, "2.00 GB/s", FormatBandwidth(2*1024*1024*1024))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512.00 B", FormatBytes(512))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "1.50 MB", FormatBytes(1.5*1024*1024))
	assert.Equal(t, "3.00 TB", FormatBytes(3*1024*1024*1024*1024))
}

func TestFormatLatency(t *testing.T) {
	assert.Equal(t, "250.00 µs", FormatLatency(250))
	assert.Equal(t, "1.50 ms", FormatLatency(1500))
	assert.Equal(t, "2.00 s", FormatLatency(2000000))
}

func TestAdaptiveTimeout(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, AdaptiveTimeout(10*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, AdaptiveTimeout(100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, AdaptiveTimeout(0))
}

func TestResolveHostLiteral(t *testing.T) {
	ip, err := ResolveHost("8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "8.8.8.8", ip.String())

	_, err = ResolveHost("2001:db8::1")
	assert.Error(t, err)
}

func TestVendorForMAC(t *testing.T) {
	tests := []struct {
		mac  string
		want string
	}{
		{"00:50:56:aa:bb:cc", "VMware"},
		{"08:00:27:11:22:33", "VirtualBox"},
		{"52:54:00:de:ad:00", "QEMU/KVM"},
		{"b8:27:eb:01:02:03", "Raspberry Pi"},
		{"f0:18:98:aa:bb:cc", "Apple"},
		{"ff:ff:ff:ff:ff:ff", "Unknown"},
	}
	for _, tt := range tests {
		mac, err := net.ParseMAC(tt.mac)
		require.NoError(t, err)
		assert.Equal(t, tt.want, VendorForMAC(mac), "mac %s", tt.mac)
	}
	assert.Equal(t, "Unknown", VendorForMAC(nil))
}

func TestInterfaces(t *testing.T) {
	ifaces, err := Interfaces()
	require.NoError(t, err)
	assert.NotEmpty(t, ifaces)
}

func TestLocalNetwork(t *testing.T) {
	network, err := LocalNetwork()
	if err != nil {
		t.Skipf("no local network: %v", err)
	}

	_, ipnet, err := net.ParseCIDR(network)
	require.NoError(t, err, "LocalNetwork returned %q", network)

	local, err := LocalIP()
	require.NoError(t, err)
	assert.True(t, ipnet.Contains(local), "%s should contain %s", network, local)
}
