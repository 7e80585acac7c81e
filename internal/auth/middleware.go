// SPDX-License-Identifier: MIT

package auth

import (
	"net/http"

	"github.com/daymark-app/daymark/internal/api/problem"
	"github.com/daymark-app/daymark/internal/log"
)

// Middleware rejects requests without a valid bearer token carrying scope.
// A nil manager (no secret configured) disables the protected routes.
func Middleware(m *Manager, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.WithComponentFromContext(r.Context(), "auth")
			if m == nil {
				problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUnavailable, "Service Unavailable",
					"AUTH_DISABLED", "no signing secret configured", nil)
				return
			}

			p, err := m.Parse(ExtractToken(r))
			if err != nil {
				logger.Warn().Err(err).Str(log.FieldEvent, "auth.rejected").Msg("rejected bearer token")
				w.Header().Set("WWW-Authenticate", `Bearer realm="daymark"`)
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized",
					"UNAUTHORIZED", "a valid bearer token is required", nil)
				return
			}
			if !p.HasScope(scope) {
				logger.Warn().Str("subject", p.Subject).Str("scope", scope).
					Str(log.FieldEvent, "auth.forbidden").Msg("token lacks required scope")
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden",
					"FORBIDDEN", ErrNoScope.Error(), map[string]any{"requiredScope": scope})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
