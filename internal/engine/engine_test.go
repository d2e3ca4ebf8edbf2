package engine

import (
	"errors"
	"os"
	"runtime"
	"testing"
	"time"
)

func canUseRawSockets() bool {
	if runtime.GOOS == "windows" {
		_, err := os.Open("\\\\.\\PHYSICALDRIVE0")
		return err == nil
	}
	return os.Getuid() == 0
}

func TestNewInvalidOptions(t *testing.T) {
	if _, err := New(WithProbeTimeout(0)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("New(WithProbeTimeout(0)) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := New(WithProbeTimeout(-time.Second)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("New(WithProbeTimeout(-1s)) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := New(WithTableCapacity(0)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("New(WithTableCapacity(0)) error = %v, want ErrInvalidParameter", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestClosedEngineOperations(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.Close()

	var p Packet
	dst, _ := ParseIPv4("8.8.8.8")
	if err := e.CraftICMPEcho(&p, dst, 1, 1); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("CraftICMPEcho() error = %v, want ErrEngineClosed", err)
	}
	if err := e.CraftTCPSyn(&p, 0, dst, 1, 2); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("CraftTCPSyn() error = %v, want ErrEngineClosed", err)
	}
	if err := e.CraftUDP(&p, 0, dst, 1, 2, nil); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("CraftUDP() error = %v, want ErrEngineClosed", err)
	}
	if err := e.Send(&p); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Send() error = %v, want ErrEngineClosed", err)
	}
	if _, err := e.Recv(time.Second); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Recv() error = %v, want ErrEngineClosed", err)
	}
	if ts := e.TimestampMicros(); ts != 0 {
		t.Errorf("TimestampMicros() after Close = %d, want 0", ts)
	}
}

func TestTimestampMonotonic(t *testing.T) {
	e := newTestEngine(t)

	prev := e.TimestampMicros()
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Microsecond)
		ts := e.TimestampMicros()
		if ts < prev {
			t.Fatalf("TimestampMicros went backwards: %d after %d", ts, prev)
		}
		prev = ts
	}
	if prev == 0 {
		t.Error("TimestampMicros() = 0 after elapsed time")
	}
}

func TestSendInvalidPacket(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Send(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Send(nil) error = %v, want ErrInvalidParameter", err)
	}
	if err := e.Send(&Packet{}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Send(empty) error = %v, want ErrInvalidParameter", err)
	}

	garbage := &Packet{Protocol: ProtocolICMP, Length: 28, Data: make([]byte, 28)}
	if err := e.Send(garbage); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Send(garbage) error = %v, want ErrInvalidParameter", err)
	}
}

func TestRecvInvalidTimeout(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Recv(0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Recv(0) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := e.Recv(-time.Second); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Recv(-1s) error = %v, want ErrInvalidParameter", err)
	}
}

func TestSendUnprivileged(t *testing.T) {
	if canUseRawSockets() {
		t.Skip("Skipping: running with raw-socket privileges")
	}
	if runtime.GOOS == "windows" {
		t.Skip("Skipping: no cheap privilege probe on Windows")
	}

	e := newTestEngine(t)

	var p Packet
	dst, _ := ParseIPv4("127.0.0.1")
	if err := e.CraftICMPEcho(&p, dst, 1, 1); err != nil {
		t.Fatalf("CraftICMPEcho() error = %v", err)
	}

	err := e.Send(&p)
	if !IsPermission(err) {
		t.Errorf("Send() error = %v, want permission denied", err)
	}
	if CodeOf(err) != CodePermissionDenied {
		t.Errorf("CodeOf = %v, want %v", CodeOf(err), CodePermissionDenied)
	}
}

func TestSendRecvLoopback(t *testing.T) {
	if !canUseRawSockets() {
		t.Skip("Skipping: requires elevated privileges")
	}

	e := newTestEngine(t)

	var p Packet
	dst, _ := ParseIPv4("127.0.0.1")
	if err := e.CraftICMPEcho(&p, dst, uint16(os.Getpid()&0xffff), 1); err != nil {
		t.Fatalf("CraftICMPEcho() error = %v", err)
	}
	if err := e.Send(&p); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	reply, err := e.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if !IsEchoReply(reply) {
		t.Errorf("reply is not an echo reply")
	}
	if reply.SrcIP != dst {
		t.Errorf("reply SrcIP = %s, want 127.0.0.1", FormatIPv4(reply.SrcIP))
	}

	stats := e.Stats()
	if stats.PacketsSent != 1 {
		t.Errorf("PacketsSent = %d, want 1", stats.PacketsSent)
	}
	if stats.RepliesMatched != 1 {
		t.Errorf("RepliesMatched = %d, want 1", stats.RepliesMatched)
	}
}

func TestStatsFresh(t *testing.T) {
	e := newTestEngine(t)

	s := e.Stats()
	if s.PacketsSent != 0 || s.PacketsReceived != 0 || s.RepliesMatched != 0 {
		t.Errorf("fresh engine stats = %+v, want zeros", s)
	}
	if s.PendingProbes != 0 {
		t.Errorf("PendingProbes = %d, want 0", s.PendingProbes)
	}
	if s.Uptime < 0 {
		t.Errorf("Uptime = %v, want >= 0", s.Uptime)
	}
}

func TestRandDeterministicWithSeed(t *testing.T) {
	a, err := New(WithRandSeed(99))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	b, err := New(WithRandSeed(99))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	for i := 0; i < 16; i++ {
		if x, y := a.randUint32(), b.randUint32(); x != y {
			t.Fatalf("randUint32 #%d: %d != %d with same seed", i, x, y)
		}
	}
}
