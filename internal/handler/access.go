package handler

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// AuthKeyHeader carries the shared key of lead submitters.
const AuthKeyHeader = "AuthKey"

// Access decides who may call which endpoint.
//
// Admins are loopback callers and callers whose address, or any address in
// X-Forwarded-For, falls in one of the admin networks.
type Access struct {
	authKey       string
	adminNetworks []*net.IPNet
	logger        *slog.Logger
}

func NewAccess(authKey string, adminNetworks []*net.IPNet, logger *slog.Logger) *Access {
	return &Access{
		authKey:       strings.ToLower(authKey),
		adminNetworks: adminNetworks,
		logger:        logger,
	}
}

// IsAdmin reports whether r comes from an admin address.
func (a *Access) IsAdmin(r *http.Request) bool {
	if ip := remoteIP(r); ip != nil && (ip.IsLoopback() || a.inAdminNetwork(ip)) {
		return true
	}

	for _, value := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(value, ",") {
			if ip := parseIP(part); ip != nil && a.inAdminNetwork(ip) {
				return true
			}
		}
	}
	return false
}

func (a *Access) inAdminNetwork(ip net.IP) bool {
	for _, n := range a.adminNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// HasKey reports whether r carries the configured key. The comparison
// ignores case. An empty configured key accepts every request.
func (a *Access) HasKey(r *http.Request) bool {
	if a.authKey == "" {
		return true
	}
	got := strings.ToLower(r.Header.Get(AuthKeyHeader))
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.authKey)) == 1
}

// RequireKey admits requests with the key and admin requests.
func (a *Access) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.HasKey(r) && !a.IsAdmin(r) {
			a.deny(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits admin requests only.
func (a *Access) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.IsAdmin(r) {
			a.deny(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Access) deny(w http.ResponseWriter, r *http.Request) {
	a.logger.Warn("Unauthorized request",
		slog.String("from", extractClientIP(r)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	w.WriteHeader(http.StatusUnauthorized)
}

func remoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return parseIP(host)
}

func parseIP(s string) net.IP {
	return net.ParseIP(strings.TrimSpace(s))
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
