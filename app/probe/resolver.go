package probe

import (
	"context"
	"net"
	"net/netip"
	"strings"
)

// LookupFunc resolves a hostname to its addresses
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

type Resolver struct {
	lookup LookupFunc
}

// NewResolver resolves hostnames through r, or net.DefaultResolver when r is nil
func NewResolver(r *net.Resolver) *Resolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Resolver{
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return r.LookupIP(ctx, "ip", host)
		},
	}
}

func NewResolverWithLookup(lookup LookupFunc) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns an IPv4 literal as-is without any DNS query. Anything else,
// IPv6 literals included, goes through the lookup and the first address wins.
func (r *Resolver) Resolve(ctx context.Context, address string) (net.IP, error) {
	address = strings.TrimSpace(address)

	if addr, err := netip.ParseAddr(address); err == nil && addr.Is4() {
		return net.IP(addr.AsSlice()), nil
	}

	ips, err := r.lookup(ctx, address)
	if err != nil {
		return nil, &ResolutionError{Address: address, Err: err}
	}
	if len(ips) == 0 {
		return nil, &ResolutionError{Address: address, Err: ErrNoAddresses}
	}

	ip := ips[0]
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return ip, nil
}
