package assignment

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/sentinel-iam/sentinel-iam/internal/authz"
	"github.com/sentinel-iam/sentinel-iam/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Handler exposes assignment graph mutations over HTTP. Routes nest under
// the parent entity, guarded as updates to that entity.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoleRoutes attaches role-permission link routes.
func (h *Handler) MountRoleRoutes(r chi.Router) {
	r.With(h.guard.Require("Roles", shared.ActionUpdate)).Post("/{id}/permissions", h.assignRolePermissions)
	r.With(h.guard.Require("Roles", shared.ActionUpdate)).Delete("/{id}/permissions", h.removeRolePermissions)
}

// MountGroupRoutes attaches group-role and group-user link routes.
func (h *Handler) MountGroupRoutes(r chi.Router) {
	r.With(h.guard.Require("Groups", shared.ActionUpdate)).Post("/{id}/roles", h.assignGroupRoles)
	r.With(h.guard.Require("Groups", shared.ActionUpdate)).Delete("/{id}/roles", h.removeGroupRoles)
	r.With(h.guard.Require("Groups", shared.ActionUpdate)).Post("/{id}/users", h.assignGroupUsers)
	r.With(h.guard.Require("Groups", shared.ActionUpdate)).Delete("/{id}/users", h.removeGroupUsers)
}

// MountUserRoutes attaches direct-grant link routes.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.With(h.guard.Require("Users", shared.ActionUpdate)).Post("/{id}/permissions", h.assignUserPermissions)
	r.With(h.guard.Require("Users", shared.ActionUpdate)).Delete("/{id}/permissions", h.removeUserPermissions)
}

func (h *Handler) assignRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodePermissionIDs(w, r)
	if !ok {
		return
	}
	h.respondAssign(w, r, func() (AssignmentResult, error) {
		return h.service.AssignPermissionsToRole(r.Context(), id, req)
	})
}

func (h *Handler) removeRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodePermissionIDs(w, r)
	if !ok {
		return
	}
	h.respondRemove(w, r, func() (RemovalResult, error) {
		return h.service.RemovePermissionsFromRole(r.Context(), id, req)
	})
}

func (h *Handler) assignGroupRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req RoleIDsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	h.respondAssign(w, r, func() (AssignmentResult, error) {
		return h.service.AssignRolesToGroup(r.Context(), id, req)
	})
}

func (h *Handler) removeGroupRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req RoleIDsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	h.respondRemove(w, r, func() (RemovalResult, error) {
		return h.service.RemoveRolesFromGroup(r.Context(), id, req)
	})
}

func (h *Handler) assignGroupUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UserIDsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	h.respondAssign(w, r, func() (AssignmentResult, error) {
		return h.service.AssignUsersToGroup(r.Context(), id, req)
	})
}

func (h *Handler) removeGroupUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UserIDsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	h.respondRemove(w, r, func() (RemovalResult, error) {
		return h.service.RemoveUsersFromGroup(r.Context(), id, req)
	})
}

func (h *Handler) assignUserPermissions(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodePermissionIDs(w, r)
	if !ok {
		return
	}
	h.respondAssign(w, r, func() (AssignmentResult, error) {
		return h.service.AssignPermissionsToUser(r.Context(), id, req)
	})
}

func (h *Handler) removeUserPermissions(w http.ResponseWriter, r *http.Request) {
	id, req, ok := decodePermissionIDs(w, r)
	if !ok {
		return
	}
	h.respondRemove(w, r, func() (RemovalResult, error) {
		return h.service.RemovePermissionsFromUser(r.Context(), id, req)
	})
}

func (h *Handler) respondAssign(w http.ResponseWriter, r *http.Request, fn func() (AssignmentResult, error)) {
	result, err := fn()
	if err != nil {
		h.logError("assign links", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondRemove(w http.ResponseWriter, r *http.Request, fn func() (RemovalResult, error)) {
	result, err := fn()
	if err != nil {
		h.logError("remove links", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func decodePermissionIDs(w http.ResponseWriter, r *http.Request) (int64, PermissionIDsRequest, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return 0, PermissionIDsRequest{}, false
	}
	var req PermissionIDsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return 0, PermissionIDsRequest{}, false
	}
	return id, req, true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) logError(msg string, err error) {
	if shared.IsNotFound(err) || shared.IsConflict(err) || shared.IsValidation(err) {
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
}
