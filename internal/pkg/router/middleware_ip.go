package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/pkg/config"
)

// ipResolver decides which address a request is attributed to. Per-IP OTP
// ceilings key on this value, so forwarding headers are only honoured when
// the TCP peer is one of the configured proxies.
type ipResolver struct {
	trusted []netip.Prefix
}

// newIPResolver reads app.server.trusted_proxies, a list of CIDRs or bare
// addresses. Invalid entries are logged and skipped.
func newIPResolver(cfg config.Config) *ipResolver {
	res := &ipResolver{}
	if cfg == nil {
		return res
	}

	for _, raw := range cfg.GetArray("app.server.trusted_proxies") {
		if p, err := netip.ParsePrefix(raw); err == nil {
			res.trusted = append(res.trusted, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(raw); err == nil {
			res.trusted = append(res.trusted, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy", "value", raw)
	}
	return res
}

func (res *ipResolver) isTrusted(a netip.Addr) bool {
	a = a.Unmap()
	for _, p := range res.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// resolve returns the client address. From an untrusted peer that is the peer
// itself. From a trusted proxy it is True-Client-IP or X-Real-IP, else the
// right-most X-Forwarded-For hop that is not itself a trusted proxy.
func (res *ipResolver) resolve(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return ""
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	for _, h := range []string{"True-Client-IP", "X-Real-IP"} {
		if a, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(h))); err == nil {
			return a.Unmap().String()
		}
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !res.isTrusted(a) {
			return a.Unmap().String()
		}
	}

	return peer.String()
}

func (res *ipResolver) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := res.resolve(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func peerAddr(remote string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(remote); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

// clientIP returns the caller address without port. The resolver has
// normally already rewritten RemoteAddr to a bare IP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
