package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	goOTP "github.com/MrEthical07/goOTP"
)

// IPResolver picks the client address for throttling and audit.
//
// X-Forwarded-For is read only when the direct peer is a trusted proxy.
// Hops are then walked right to left and the first untrusted address wins,
// so entries a client prepends itself are never used. A nil or empty
// resolver ignores the header.
type IPResolver struct {
	trusted []netip.Prefix
}

// NewIPResolver accepts proxy CIDRs or bare addresses.
func NewIPResolver(trustedProxies []string) (*IPResolver, error) {
	res := &IPResolver{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			res.trusted = append(res.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return res, nil
}

func (res *IPResolver) isTrusted(addr netip.Addr) bool {
	if res == nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the resolved client address for r.
func (res *IPResolver) ClientIP(r *http.Request) string {
	peer := peerIP(r)
	peerAddr, err := netip.ParseAddr(peer)
	if err != nil || !res.isTrusted(peerAddr) {
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return peer
		}
		if !res.isTrusted(hop) || i == 0 {
			return hop.Unmap().String()
		}
	}
	return peer
}

// RequestContext stores the client IP and user agent where the engine's
// throttles and audit events read them.
func (res *IPResolver) RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goOTP.WithClientIP(r.Context(), res.ClientIP(r))
		ctx = goOTP.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the host part of RemoteAddr. Forwarded headers are
// ignored; use an IPResolver with trusted proxies to honor them.
func ClientIP(r *http.Request) string {
	return peerIP(r)
}

// RequestContext is IPResolver.RequestContext with no trusted proxies.
func RequestContext(next http.Handler) http.Handler {
	var res *IPResolver
	return res.RequestContext(next)
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
