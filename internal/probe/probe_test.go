package probe

import (
	"errors"
	"testing"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
)

func TestMethodString(t *testing.T) {
	tests := []struct {
		method Method
		want   string
	}{
		{MethodICMP, "icmp"},
		{MethodUDP, "udp"},
		{MethodTCP, "tcp"},
		{Method(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.method.String(); got != tt.want {
			t.Errorf("Method(%d).String() = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"icmp", MethodICMP, false},
		{"", MethodICMP, false},
		{"udp", MethodUDP, false},
		{"tcp", MethodTCP, false},
		{"paris", 0, true},
		{"ICMP", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMapEngineErr(t *testing.T) {
	if got := mapEngineErr(nil); got != nil {
		t.Errorf("mapEngineErr(nil) = %v, want nil", got)
	}

	if got := mapEngineErr(engine.ErrTimeout); got != ErrTimeout {
		t.Errorf("mapEngineErr(engine.ErrTimeout) = %v, want ErrTimeout", got)
	}

	if got := mapEngineErr(engine.ErrPermissionDenied); got != ErrPermissionDenied {
		t.Errorf("mapEngineErr(engine.ErrPermissionDenied) = %v, want ErrPermissionDenied", got)
	}

	if got := mapEngineErr(engine.ErrEngineClosed); got != ErrSocketClosed {
		t.Errorf("mapEngineErr(engine.ErrEngineClosed) = %v, want ErrSocketClosed", got)
	}

	// Unrelated errors pass through untouched.
	plain := errors.New("boom")
	if got := mapEngineErr(plain); got != plain {
		t.Errorf("mapEngineErr(plain) = %v, want passthrough", got)
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsTimeout(ErrTimeout) {
		t.Error("IsTimeout(ErrTimeout) = false, want true")
	}
	if IsTimeout(ErrPermissionDenied) {
		t.Error("IsTimeout(ErrPermissionDenied) = true, want false")
	}
	if !IsPermissionError(ErrPermissionDenied) {
		t.Error("IsPermissionError(ErrPermissionDenied) = false, want true")
	}
}
