package web

import (
	"net/http"
	"net/url"
	"strings"
)

// newOriginChecker returns a websocket.Upgrader CheckOrigin func. Requests
// without an Origin header (non-browser clients) and same-host origins are
// always accepted; anything else must appear in allowed. "*" allows all.
func newOriginChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	_, allowAll := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		return strings.EqualFold(u.Host, requestHost(r))
	}
}

// requestHost prefers the first X-Forwarded-Host so the check works behind a
// reverse proxy.
func requestHost(r *http.Request) string {
	host := strings.TrimSpace(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	if idx := strings.Index(host, ","); idx >= 0 {
		host = strings.TrimSpace(host[:idx])
	}
	return host
}
