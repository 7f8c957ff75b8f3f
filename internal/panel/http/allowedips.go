package http

import (
	"net/http"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type AllowedIPsHandler struct {
	AllowedIPService *service.AllowedIPService
}

type AllowedIPResponse struct {
	ID          int64     `json:"id"`
	IPAddress   string    `json:"ip_address"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAllowedIPResponse(e domain.AllowedIP) AllowedIPResponse {
	return AllowedIPResponse{
		ID:          e.ID,
		IPAddress:   e.IPAddress,
		Description: e.Description,
		Active:      e.Active,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// HandleList returns the caller's allow-list entries. Pass ?active=true to
// filter out deactivated ones.
func (h *AllowedIPsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	entries, err := h.AllowedIPService.List(ctx, user.ID, activeOnly)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	resp := make([]AllowedIPResponse, len(entries))
	for i, e := range entries {
		resp[i] = toAllowedIPResponse(e)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"allowed_ips": resp})
}

type addAllowedIPRequest struct {
	IPAddress   string `json:"ip_address" validate:"required,ip"`
	Description string `json:"description" validate:"max=256"`
}

// HandleAdd registers an address on the caller's allow-list.
func (h *AllowedIPsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req addAllowedIPRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	entry, err := h.AllowedIPService.Add(ctx, user, user.ID, req.IPAddress, req.Description)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("allow-list entry added", "user_id", user.ID, "ip", entry.IPAddress)
	httpx.WriteJSON(w, http.StatusCreated, toAllowedIPResponse(entry))
}

// HandleRemove deactivates an allow-list entry by address.
func (h *AllowedIPsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	ip := r.PathValue("ip")
	if err := h.AllowedIPService.Remove(ctx, user, user.ID, ip); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("allow-list entry removed", "user_id", user.ID, "ip", ip)
	w.WriteHeader(http.StatusNoContent)
}
