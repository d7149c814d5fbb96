package auth

import (
	"net/http"
	"strings"

	"github.com/example/cinema-platform/internal/platform/api"
	"github.com/example/cinema-platform/internal/platform/httpserver"
)

// RequireAdmin lets the request through only when RequireUser already put
// role=admin into the context. Catalog writes are admin-only.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		if strings.ToLower(strings.TrimSpace(role)) != "admin" {
			api.Forbidden(w, "ADMIN_ONLY", "Admin role required", httpserver.RequestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
