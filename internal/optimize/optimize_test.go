package optimize

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Len(t, cfg.Resolvers, 4)
	assert.Contains(t, cfg.Resolvers, "1.1.1.1")
	assert.Len(t, cfg.Domains, 5)
	assert.Equal(t, "8.8.8.8", cfg.ProbeTarget)
	assert.Equal(t, 2*time.Second, cfg.DNSTimeout)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 5, cfg.ProbeCount)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "no resolvers",
			mutate:  func(c *Config) { c.Resolvers = nil },
			wantErr: ErrNoResolvers,
		},
		{
			name:    "no domains",
			mutate:  func(c *Config) { c.Domains = nil },
			wantErr: ErrNoDomains,
		},
		{
			name:    "no probe target",
			mutate:  func(c *Config) { c.ProbeTarget = "" },
			wantErr: ErrNoProbeTarget,
		},
		{
			name:    "dns timeout too short",
			mutate:  func(c *Config) { c.DNSTimeout = time.Millisecond },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "probe timeout too short",
			mutate:  func(c *Config) { c.ProbeTimeout = time.Millisecond },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "probe count too high",
			mutate:  func(c *Config) { c.ProbeCount = 100 },
			wantErr: ErrInvalidProbeCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeCount = -1

	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidProbeCount)
}

func TestResolverAddr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"8.8.8.8", "8.8.8.8:53"},
		{"8.8.8.8:5353", "8.8.8.8:5353"},
		{"2001:db8::1", "[2001:db8::1]:53"},
		{"dns.example.com", "dns.example.com:53"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolverAddr(tt.in), "resolverAddr(%q)", tt.in)
	}
}

// startDNSServer runs a miekg/dns server on a loopback socket that
// answers every A query with a fixed address.
func startDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		for _, q := range r.Question {
			if q.Qtype != dns.TypeA {
				continue
			}
			rr, err := dns.NewRR(fmt.Sprintf("%s 60 IN A 192.0.2.10", q.Name))
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		}
		_ = w.WriteMsg(m)
	})

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestBenchmarkDNS(t *testing.T) {
	addr := startDNSServer(t)

	cfg := DefaultConfig()
	cfg.Resolvers = []string{addr}
	cfg.Domains = []string{"alpha.test", "beta.test"}
	cfg.DNSTimeout = time.Second

	o, err := New(cfg)
	require.NoError(t, err)

	report, err := o.BenchmarkDNS(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, addr, res.Resolver)
	assert.Equal(t, 2, res.Queries)
	assert.Zero(t, res.Failed)
	assert.True(t, res.Reachable())
	assert.Greater(t, res.AvgLatency, time.Duration(0))

	fastest, ok := report.Fastest()
	require.True(t, ok)
	assert.Equal(t, addr, fastest.Resolver)
}

func TestBenchmarkDNSRanksDeadResolverLast(t *testing.T) {
	live := startDNSServer(t)

	cfg := DefaultConfig()
	// 192.0.2.0/24 is reserved for documentation and never routed, so
	// queries against it can only time out.
	cfg.Resolvers = []string{"192.0.2.1", live}
	cfg.Domains = []string{"alpha.test"}
	cfg.DNSTimeout = 200 * time.Millisecond

	o, err := New(cfg)
	require.NoError(t, err)

	report, err := o.BenchmarkDNS(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.Equal(t, live, report.Results[0].Resolver)
	assert.True(t, report.Results[0].Reachable())
	assert.False(t, report.Results[1].Reachable())
	assert.Equal(t, report.Results[1].Queries, report.Results[1].Failed)
}

func TestBenchmarkDNSCanceledContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolvers = []string{"192.0.2.1"}
	cfg.Domains = []string{"alpha.test"}

	o, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.BenchmarkDNS(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLargestFitting(t *testing.T) {
	upTo := func(limit int) func(int) (bool, error) {
		return func(size int) (bool, error) { return size <= limit, nil }
	}

	tests := []struct {
		name    string
		lo, hi  int
		fits    func(int) (bool, error)
		want    int
		wantErr error
	}{
		{name: "limit inside range", lo: 576, hi: 1500, fits: upTo(1400), want: 1400},
		{name: "everything fits", lo: 576, hi: 1500, fits: upTo(9000), want: 1500},
		{name: "exact ceiling", lo: 576, hi: 1500, fits: upTo(1500), want: 1500},
		{name: "only the floor fits", lo: 576, hi: 1500, fits: upTo(576), want: 576},
		{name: "nothing fits", lo: 576, hi: 1500, fits: upTo(100), wantErr: ErrMTUInconclusive},
		{name: "typical pppoe path", lo: 576, hi: 1500, fits: upTo(1492), want: 1492},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := largestFitting(tt.lo, tt.hi, tt.fits)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLargestFittingPropagatesProbeError(t *testing.T) {
	probeErr := fmt.Errorf("socket lost")
	fits := func(size int) (bool, error) { return false, probeErr }

	_, err := largestFitting(576, 1500, fits)
	assert.ErrorIs(t, err, probeErr)
}

func TestDiscoverMTUNeedsRawSockets(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("Skipping: requires an unprivileged user")
	}

	o, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = o.DiscoverMTU(context.Background())
	require.Error(t, err)
	assert.True(t, engine.IsPermission(err))
}

func TestTunableSatisfied(t *testing.T) {
	tests := []struct {
		name, value, want string
		satisfied         bool
	}{
		{"tcp_window_scaling", "1", "1", true},
		{"tcp_window_scaling", "0", "1", false},
		{"tcp_fastopen", "3", "3", true},
		{"tcp_fastopen", "1", "3", false},
		{"tcp_fastopen", "1027", "3", true}, // extra flag bits set
		{"tcp_congestion_control", "bbr", "bbr", true},
		{"tcp_congestion_control", "cubic", "bbr", false},
	}

	for _, tt := range tests {
		got := tunableSatisfied(tt.name, tt.value, tt.want)
		assert.Equal(t, tt.satisfied, got, "%s=%s vs %s", tt.name, tt.value, tt.want)
	}
}

func TestInspectTCP(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("Skipping: TCP tunables live in /proc/sys")
	}

	o, err := New(DefaultConfig())
	require.NoError(t, err)

	report, err := o.InspectTCP()
	if err != nil {
		t.Skipf("Skipping: %v", err)
	}

	assert.NotEmpty(t, report.Params)
	for _, p := range report.Params {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Value)
		assert.NotEmpty(t, p.Recommended)
		assert.NotEmpty(t, p.Description)
	}
}

const sampleSNMP = `Ip: Forwarding DefaultTTL InReceives
Ip: 1 64 1000
Tcp: RtoAlgorithm RtoMin RtoMax ActiveOpens RetransSegs OutSegs
Tcp: 1 200 120000 5000 42 99999
Udp: InDatagrams NoPorts
Udp: 1234 5
`

func TestParseSNMPField(t *testing.T) {
	got, err := parseSNMPField(strings.NewReader(sampleSNMP), "Tcp", "RetransSegs")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	got, err = parseSNMPField(strings.NewReader(sampleSNMP), "Udp", "NoPorts")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got)
}

func TestParseSNMPFieldErrors(t *testing.T) {
	_, err := parseSNMPField(strings.NewReader(sampleSNMP), "Tcp", "NoSuchField")
	assert.Error(t, err)

	_, err = parseSNMPField(strings.NewReader(sampleSNMP), "Sctp", "RetransSegs")
	assert.Error(t, err)

	short := "Tcp: RtoAlgorithm RetransSegs\nTcp: 1\n"
	_, err = parseSNMPField(strings.NewReader(short), "Tcp", "RetransSegs")
	assert.Error(t, err)
}

func TestRecommend(t *testing.T) {
	baseline := []string{
		"Enable TCP window scaling for better throughput",
		"Configure optimal MTU size for your network",
	}

	tests := []struct {
		name         string
		metrics      Metrics
		wantContains []string
		wantLen      int
	}{
		{
			name:    "healthy network gets only the generic advice",
			metrics: Metrics{AvgLatency: 15 * time.Millisecond, PacketLoss: 0, ProbesSent: 5},
			wantLen: 2,
		},
		{
			name:         "high latency",
			metrics:      Metrics{AvgLatency: 80 * time.Millisecond, ProbesSent: 5},
			wantContains: []string{"Enable TCP Fast Open to reduce connection latency"},
			wantLen:      3,
		},
		{
			name:         "packet loss",
			metrics:      Metrics{AvgLatency: 10 * time.Millisecond, PacketLoss: 5, ProbesSent: 5},
			wantContains: []string{"Investigate physical connection - high packet loss detected"},
			wantLen:      3,
		},
		{
			name:         "retransmission storm",
			metrics:      Metrics{ProbesSent: 5, Retransmits: 500},
			wantContains: []string{"Tune TCP congestion control algorithm (recommend BBR)"},
			wantLen:      3,
		},
		{
			name:    "latency rules stay quiet when probing was unavailable",
			metrics: Metrics{ProbesSent: 0, PacketLoss: 0},
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := recommend(tt.metrics)
			assert.Len(t, recs, tt.wantLen)
			for _, want := range tt.wantContains {
				assert.Contains(t, recs, want)
			}
			for _, want := range baseline {
				assert.Contains(t, recs, want)
			}
		})
	}
}

func TestTCPReportTuned(t *testing.T) {
	tuned := &TCPReport{Params: []TCPParam{
		{Name: "tcp_sack", Satisfied: true},
		{Name: "tcp_fastopen", Satisfied: true},
	}}
	assert.True(t, tuned.Tuned())

	mixed := &TCPReport{Params: []TCPParam{
		{Name: "tcp_sack", Satisfied: true},
		{Name: "tcp_congestion_control", Satisfied: false},
	}}
	assert.False(t, mixed.Tuned())

	assert.False(t, (&TCPReport{}).Tuned())
}
