package authz

import (
	"net/http"

	"log/slog"

	"github.com/sentinel-iam/sentinel-iam/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Middleware wires gate checks into HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// Require ensures the request subject holds the given permission. Missing
// subject context is a 401. A denied decision or a resolution failure is a
// 403; errors never fall through to a grant.
func (m Middleware) Require(module string, action shared.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID, ok := shared.SubjectFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing subject identity")
				return
			}

			decision, err := m.Gate.Allowed(r.Context(), subjectID, module, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require",
						slog.Int64("subject_id", subjectID),
						slog.String("module", module),
						slog.String("action", string(action)),
						slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "authorization unavailable")
				return
			}
			if !decision.Granted {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", decision.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
