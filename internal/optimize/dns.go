package optimize

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// DNSReport ranks the benchmarked resolvers fastest first.
type DNSReport struct {
	Results []ResolverResult
}

// Fastest returns the best-ranked reachable resolver.
func (r *DNSReport) Fastest() (ResolverResult, bool) {
	if len(r.Results) == 0 || !r.Results[0].Reachable() {
		return ResolverResult{}, false
	}
	return r.Results[0], true
}

// ResolverResult is one resolver's benchmark outcome.
type ResolverResult struct {
	Resolver   string
	AvgLatency time.Duration
	Queries    int
	Failed     int
}

// Reachable reports whether at least one query succeeded.
func (r ResolverResult) Reachable() bool {
	return r.Queries > r.Failed
}

// BenchmarkDNS times an A-record query for every configured domain
// against every configured resolver and ranks the resolvers by mean
// query latency. Failed or refused queries count against a resolver but
// not toward its average.
func (o *Optimizer) BenchmarkDNS(ctx context.Context) (*DNSReport, error) {
	o.log.Info("benchmarking resolvers",
		"resolvers", len(o.config.Resolvers),
		"domains", len(o.config.Domains))

	results := make([]ResolverResult, len(o.config.Resolvers))
	var wg sync.WaitGroup
	for i, resolver := range o.config.Resolvers {
		wg.Add(1)
		go func(i int, resolver string) {
			defer wg.Done()
			results[i] = o.benchmarkResolver(ctx, resolver)
		}(i, resolver)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Reachable() != b.Reachable() {
			return a.Reachable()
		}
		return a.AvgLatency < b.AvgLatency
	})
	return &DNSReport{Results: results}, nil
}

// benchmarkResolver queries every configured domain once through one
// resolver, sequentially so the measurements do not contend with each
// other.
func (o *Optimizer) benchmarkResolver(ctx context.Context, resolver string) ResolverResult {
	res := ResolverResult{Resolver: resolver}
	addr := resolverAddr(resolver)
	client := &dns.Client{Timeout: o.config.DNSTimeout}

	var total time.Duration
	for _, domain := range o.config.Domains {
		if ctx.Err() != nil {
			break
		}
		res.Queries++

		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)

		in, rtt, err := client.ExchangeContext(ctx, msg, addr)
		if err != nil {
			o.log.Debug("query failed", "resolver", resolver, "domain", domain, "error", err)
			res.Failed++
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			o.log.Debug("query refused", "resolver", resolver, "domain", domain, "rcode", dns.RcodeToString[in.Rcode])
			res.Failed++
			continue
		}
		total += rtt
	}

	if answered := res.Queries - res.Failed; answered > 0 {
		res.AvgLatency = total / time.Duration(answered)
	}
	return res
}

// resolverAddr appends the DNS port when the resolver has none.
func resolverAddr(resolver string) string {
	if _, _, err := net.SplitHostPort(resolver); err == nil {
		return resolver
	}
	return net.JoinHostPort(resolver, "53")
}
