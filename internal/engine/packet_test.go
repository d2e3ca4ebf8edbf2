package engine

import (
	"net"
	"testing"
)

func TestParseIPv4(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint32
		wantErr bool
	}{
		{name: "Google DNS", input: "8.8.8.8", want: 0x08080808},
		{name: "Localhost", input: "127.0.0.1", want: 0x7f000001},
		{name: "Private", input: "192.168.1.1", want: 0xc0a80101},
		{name: "Zero", input: "0.0.0.0", want: 0x00000000},
		{name: "Broadcast", input: "255.255.255.255", want: 0xffffffff},
		{name: "Empty", input: "", wantErr: true},
		{name: "Hostname", input: "example.com", wantErr: true},
		{name: "IPv6", input: "2001:db8::1", wantErr: true},
		{name: "Octet overflow", input: "256.1.1.1", wantErr: true},
		{name: "Truncated", input: "10.0.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIPv4(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseIPv4(%q) = 0x%08x, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIPv4(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseIPv4(%q) = 0x%08x, want 0x%08x", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatIPv4(t *testing.T) {
	tests := []struct {
		ip   uint32
		want string
	}{
		{0x08080808, "8.8.8.8"},
		{0x7f000001, "127.0.0.1"},
		{0xc0a80101, "192.168.1.1"},
		{0x00000000, "0.0.0.0"},
		{0xffffffff, "255.255.255.255"},
	}

	for _, tt := range tests {
		if got := FormatIPv4(tt.ip); got != tt.want {
			t.Errorf("FormatIPv4(0x%08x) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	addrs := []string{"8.8.8.8", "1.2.3.4", "10.0.0.1", "172.16.254.3", "255.0.255.0"}
	for _, s := range addrs {
		ip, err := ParseIPv4(s)
		if err != nil {
			t.Fatalf("ParseIPv4(%q) error = %v", s, err)
		}
		if back := FormatIPv4(ip); back != s {
			t.Errorf("round trip %q -> 0x%08x -> %q", s, ip, back)
		}
	}
}

func TestNetIPConversions(t *testing.T) {
	ip, ok := FromNetIP(net.IPv4(8, 8, 4, 4))
	if !ok {
		t.Fatal("FromNetIP(8.8.4.4) not ok")
	}
	if ip != 0x08080404 {
		t.Errorf("FromNetIP = 0x%08x, want 0x08080404", ip)
	}
	if _, ok := FromNetIP(net.ParseIP("2001:db8::1")); ok {
		t.Error("FromNetIP accepted an IPv6 address")
	}
	if got := ToNetIP(0x08080404); !got.Equal(net.IPv4(8, 8, 4, 4)) {
		t.Errorf("ToNetIP = %v, want 8.8.4.4", got)
	}
}

func TestPacketBytes(t *testing.T) {
	p := &Packet{Data: make([]byte, 64), Length: 28}
	if got := len(p.Bytes()); got != 28 {
		t.Errorf("len(Bytes()) = %d, want 28", got)
	}

	p.Length = 0
	if p.Bytes() != nil {
		t.Error("Bytes() with zero length should be nil")
	}

	p.Length = 65
	if p.Bytes() != nil {
		t.Error("Bytes() with length beyond data should be nil")
	}
}

func TestProtocolString(t *testing.T) {
	tests := []struct {
		proto Protocol
		want  string
	}{
		{ProtocolICMP, "icmp"},
		{ProtocolTCP, "tcp"},
		{ProtocolUDP, "udp"},
		{ProtocolOther, "other"},
	}
	for _, tt := range tests {
		if got := tt.proto.String(); got != tt.want {
			t.Errorf("Protocol(%d).String() = %q, want %q", tt.proto, got, tt.want)
		}
	}
}
