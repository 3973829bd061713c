package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sentinel-iam/sentinel-iam/internal/assignment"
	"github.com/sentinel-iam/sentinel-iam/internal/authz"
	"github.com/sentinel-iam/sentinel-iam/internal/groups"
	"github.com/sentinel-iam/sentinel-iam/internal/modules"
	"github.com/sentinel-iam/sentinel-iam/internal/observability"
	"github.com/sentinel-iam/sentinel-iam/internal/permissions"
	"github.com/sentinel-iam/sentinel-iam/internal/roles"
	"github.com/sentinel-iam/sentinel-iam/internal/users"
	"github.com/sentinel-iam/sentinel-iam/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ModulesHandler     *modules.Handler
	PermissionsHandler *permissions.Handler
	RolesHandler       *roles.Handler
	GroupsHandler      *groups.Handler
	UsersHandler       *users.Handler
	AssignmentHandler  *assignment.Handler
	AuthzHandler       *authz.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Sentinel defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/modules", params.ModulesHandler.MountRoutes)
		api.Route("/permissions", params.PermissionsHandler.MountRoutes)
		api.Route("/roles", func(rr chi.Router) {
			params.RolesHandler.MountRoutes(rr)
			params.AssignmentHandler.MountRoleRoutes(rr)
		})
		api.Route("/groups", func(gr chi.Router) {
			params.GroupsHandler.MountRoutes(gr)
			params.AssignmentHandler.MountGroupRoutes(gr)
		})
		api.Route("/users", func(ur chi.Router) {
			params.UsersHandler.MountRoutes(ur)
			params.AssignmentHandler.MountUserRoutes(ur)
		})
		api.Route("/authz", params.AuthzHandler.MountRoutes)
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
