package middleware

import (
	"context"
	"net/http"

	"github.com/xlink-api/internal/pkg/hostname"
)

const subdomainKey contextKey = "subdomain"

// Subdomain classifies the request's Host header and stores the extracted
// tenant label in the context. The choice is purely host-shape-based; no
// registry lookup happens here. Resolving the label to an owner is the
// tenant page handler's job.
func Subdomain(baseDomain string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			label := hostname.ExtractSubdomain(r.Host, baseDomain)
			if label != "" {
				r = r.WithContext(context.WithValue(r.Context(), subdomainKey, label))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SubdomainFromContext returns the tenant label extracted from the Host
// header, or "" for primary-site requests.
func SubdomainFromContext(ctx context.Context) string {
	label, _ := ctx.Value(subdomainKey).(string)
	return label
}
