package authz

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel-iam/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Handler exposes the resolver and simulator over HTTP.
type Handler struct {
	logger    *slog.Logger
	source    PermissionSource
	simulator *Simulator
	guard     Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, source PermissionSource, simulator *Simulator, guard Middleware) *Handler {
	return &Handler{logger: logger, source: source, simulator: simulator, guard: guard}
}

// MountRoutes attaches authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me/permissions", h.myPermissions)
	// Simulation does not require holding the simulated permission, only
	// read access on the Permissions module.
	r.With(h.guard.Require("Permissions", shared.ActionRead)).Post("/simulate", h.simulate)
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := shared.SubjectFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing subject identity")
		return
	}

	set, err := h.source.EffectivePermissions(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("resolve own permissions", slog.Int64("subject_id", subjectID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	grants := set.List()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"subject_id":  subjectID,
		"permissions": grants,
		"count":       len(grants),
	})
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.simulator.Simulate(r.Context(), req)
	if err != nil {
		if !shared.IsValidation(err) && !shared.IsNotFound(err) {
			h.logger.Error("simulate action", slog.Int64("subject_id", req.SubjectID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
