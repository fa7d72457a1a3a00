package opshttp

import (
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"
)

var pprofRoutes = map[string]http.HandlerFunc{
	"/debug/pprof/":        pprof.Index,
	"/debug/pprof/cmdline": pprof.Cmdline,
	"/debug/pprof/profile": pprof.Profile,
	"/debug/pprof/symbol":  pprof.Symbol,
	"/debug/pprof/trace":   pprof.Trace,
}

// RegisterPprof mounts the runtime profiles, visible only to loopback and
// private-range peers.
func RegisterPprof(mux *http.ServeMux) {
	for p, h := range pprofRoutes {
		mux.Handle(p, privateOnly(h))
	}
}

func privateOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		addr, err := netip.ParseAddr(host)
		if err != nil || !(addr.Unmap().IsLoopback() || addr.Unmap().IsPrivate()) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
