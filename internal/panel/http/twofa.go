package http

import (
	"net/http"

	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
}

// HandleEnroll starts TOTP enrollment and returns the secret and
// provisioning URL exactly once.
func (h *TwoFactorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	enrollment, err := h.TwoFactorService.Enroll(ctx, user)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("two-factor enrollment started", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, enrollment)
}

type twoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// HandleActivate turns the factor on after code verification.
func (h *TwoFactorHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.TwoFactorService.Activate(ctx, user.ID, req.Code); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("two-factor enabled", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "two_fa_enabled"})
}

// HandleDisable turns the factor off after code verification.
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req twoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.TwoFactorService.Disable(ctx, user.ID, req.Code); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("two-factor disabled", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "two_fa_disabled"})
}
