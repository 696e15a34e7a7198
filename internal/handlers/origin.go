package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

// RequireTrustedOrigin rejects state-changing cross-origin requests.
// With cookie-based sessions the browser attaches credentials to
// cross-site form posts, so non-GET requests carrying an Origin header
// must name the configured public host. An empty publicHost disables the
// check; requests without an Origin header (curl, same-origin GET
// navigations, service-to-service calls) pass through.
func RequireTrustedOrigin(publicHost string) func(http.Handler) http.Handler {
	trusted := strings.TrimSpace(publicHost)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trusted == "" || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || origin == "null" {
				next.ServeHTTP(w, r)
				return
			}

			parsed, err := url.Parse(origin)
			if err != nil || !strings.EqualFold(parsed.Host, trusted) {
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
