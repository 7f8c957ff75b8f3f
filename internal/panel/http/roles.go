package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type RolesHandler struct {
	RoleService *service.RoleService
}

type RoleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CountUsers  int64     `json:"count_users"`
	Protected   bool      `json:"protected"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoleResponse(role domain.Role) RoleResponse {
	return RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CountUsers:  role.CountUsers,
		Protected:   role.Protected(),
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

// HandleList returns all roles with their member counters.
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	roles, err := h.RoleService.List(ctx)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	resp := make([]RoleResponse, len(roles))
	for i, role := range roles {
		resp[i] = toRoleResponse(role)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"roles": resp})
}

// HandleGet returns a single role by path id.
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid role id")
		return
	}

	role, err := h.RoleService.Get(ctx, id)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=256"`
}

// HandleCreate adds a custom role.
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	role, err := h.RoleService.Create(ctx, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("role created", "role_id", role.ID, "name", role.Name)
	httpx.WriteJSON(w, http.StatusCreated, toRoleResponse(role))
}

// HandleDelete removes a custom role.
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid role id")
		return
	}

	if err := h.RoleService.Delete(ctx, id); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("role deleted", "role_id", id)
	w.WriteHeader(http.StatusNoContent)
}
