package optimize

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/JustAaronHere/NetWeaver/internal/engine"
	"github.com/JustAaronHere/NetWeaver/internal/netutil"
)

const (
	// minProbeMTU is the classic IPv4 minimum every conformant path
	// carries; maxProbeMTU covers jumbo frames.
	minProbeMTU = 576
	maxProbeMTU = 9216

	// icmpOverhead is the non-payload portion of an echo probe.
	icmpOverhead = engine.IPv4HeaderSize + engine.ICMPHeaderSize

	// mtuProbeTries retries a silent probe once. Silence usually means
	// loss; fragmentation-needed and local send refusals are definitive
	// on the first try.
	mtuProbeTries = 2

	icmpTypeUnreachable = 3
	icmpCodeFragNeeded  = 4
)

// MTUReport describes the usable packet size toward the probe target.
type MTUReport struct {
	// Target is the probed host.
	Target net.IP

	// Interface and LinkMTU describe the outbound interface, when it
	// could be determined.
	Interface string
	LinkMTU   int

	// PathMTU is the largest packet that reached the target with the
	// DF bit set.
	PathMTU int
}

// DiscoverMTU binary-searches the largest IPv4 packet that reaches the
// probe target unfragmented, using DF-flagged echo probes. Requires raw
// sockets.
func (o *Optimizer) DiscoverMTU(ctx context.Context) (*MTUReport, error) {
	target, err := netutil.ResolveHost(o.config.ProbeTarget)
	if err != nil {
		return nil, err
	}
	dst, ok := engine.FromNetIP(target)
	if !ok {
		return nil, fmt.Errorf("probe target %q is not addressable", o.config.ProbeTarget)
	}

	report := &MTUReport{Target: target}
	report.Interface, report.LinkMTU = outboundLink()

	eng, err := engine.New(engine.WithProbeTimeout(o.config.ProbeTimeout + time.Second))
	if err != nil {
		return nil, err
	}
	defer eng.Close()

	ceiling := report.LinkMTU
	if ceiling <= 0 {
		ceiling = 1500
	}
	if ceiling > maxProbeMTU {
		ceiling = maxProbeMTU
	}
	if ceiling < minProbeMTU {
		ceiling = minProbeMTU
	}

	id := uint16(os.Getpid() & 0xffff)
	var seq uint16
	fits := func(size int) (bool, error) {
		return o.probeSize(ctx, eng, dst, id, &seq, size)
	}

	o.log.Info("probing path MTU", "target", target, "ceiling", ceiling)
	pathMTU, err := largestFitting(minProbeMTU, ceiling, fits)
	if err != nil {
		return nil, err
	}

	report.PathMTU = pathMTU
	o.log.Info("path MTU found", "target", target, "mtu", pathMTU)
	return report, nil
}

// largestFitting binary-searches the largest size in [lo, hi] for which
// fits reports true. lo itself must fit or the search is inconclusive.
func largestFitting(lo, hi int, fits func(int) (bool, error)) (int, error) {
	ok, err := fits(hi)
	if err != nil {
		return 0, err
	}
	if ok {
		return hi, nil
	}

	ok, err = fits(lo)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrMTUInconclusive
	}

	for hi-lo > 1 {
		mid := (lo + hi) / 2
		ok, err := fits(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// probeSize sends one DF-flagged echo of exactly size bytes and awaits a
// verdict: an echo reply means the size fits, a fragmentation-needed
// error or a send refused by the local stack means it does not. The
// caller establishes that the minimum size sends cleanly, so a send
// failure here can only be about size.
func (o *Optimizer) probeSize(ctx context.Context, eng *engine.Engine, dst uint32, id uint16, seq *uint16, size int) (bool, error) {
	payload := make([]byte, size-icmpOverhead)

	for try := 0; try < mtuProbeTries; try++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		*seq++
		sent := *seq
		var pkt engine.Packet
		if err := eng.CraftICMPEcho(&pkt, dst, id, sent, engine.WithDontFragment(), engine.WithPayload(payload)); err != nil {
			return false, err
		}
		if err := eng.Send(&pkt); err != nil {
			if engine.IsPermission(err) || errors.Is(err, engine.ErrEngineClosed) {
				return false, err
			}
			o.log.Debug("send refused", "size", size, "error", err)
			return false, nil
		}

		deadline := time.Now().Add(o.config.ProbeTimeout)
		for {
			remain := time.Until(deadline)
			if remain <= 0 {
				break
			}
			reply, err := eng.Recv(remain)
			if err != nil {
				if engine.IsTimeout(err) {
					break
				}
				return false, err
			}

			if engine.IsEchoReply(reply) {
				if _, _, _, rseq, ok := engine.ICMPEchoInfo(reply); ok && rseq == sent {
					return true, nil
				}
				continue
			}
			// A router on the path rejecting the size quotes our probe.
			if typ, code, _, _, ok := engine.ICMPEchoInfo(reply); ok && typ == icmpTypeUnreachable && code == icmpCodeFragNeeded {
				if _, qseq, qok := engine.QuotedEchoInfo(reply); qok && qseq == sent {
					o.log.Debug("fragmentation needed", "size", size)
					return false, nil
				}
			}
		}
	}
	return false, nil
}

// outboundLink names the interface holding the host's outbound address
// and reports its MTU, best effort.
func outboundLink() (string, int) {
	local, err := netutil.LocalIP()
	if err != nil {
		return "", 0
	}
	ifaces, err := netutil.Interfaces()
	if err != nil {
		return "", 0
	}
	for _, ifi := range ifaces {
		for _, addr := range ifi.Addrs {
			ip, _, err := net.ParseCIDR(addr)
			if err != nil {
				ip = net.ParseIP(addr)
			}
			if ip != nil && ip.Equal(local) {
				return ifi.Name, ifi.MTU
			}
		}
	}
	return "", 0
}
