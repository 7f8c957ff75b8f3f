package http

import (
	"net/http"
	"strconv"

	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type UsersHandler struct {
	UserService       *service.UserService
	RoleService       *service.RoleService
	RoleChangeService *service.RoleChangeService
}

// HandleMe returns the authenticated user's own record.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromCtx(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type updateProfileRequest struct {
	FirstName      *string `json:"first_name" validate:"omitempty,max=64"`
	LastName       *string `json:"last_name" validate:"omitempty,max=64"`
	Nick           *string `json:"nick" validate:"omitempty,max=32"`
	SecondaryEmail *string `json:"secondary_email" validate:"omitempty,email"`
}

// HandleUpdateProfile applies a partial update to the caller's own profile.
func (h *UsersHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	updated, err := h.UserService.UpdateProfile(ctx, user, user.ID, service.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Nick:           req.Nick,
		SecondaryEmail: req.SecondaryEmail,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// HandleChangePassword rotates the caller's password after verifying the
// current one.
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.UserService.ChangePassword(ctx, user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("password changed", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

type createUserRequest struct {
	Phone     string `json:"phone" validate:"required,min=5,max=32"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"omitempty,max=64"`
	LastName  string `json:"last_name" validate:"omitempty,max=64"`
}

type createUserResponse struct {
	User     UserResponse `json:"user"`
	Password string       `json:"password"`
}

// HandleCreate creates an account on behalf of an administrator. The
// generated password is returned once in the response and never again.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actor, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	user, password, err := h.UserService.AdminCreate(ctx, actor, service.AdminCreateParams{
		Phone:     req.Phone,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("user created", "user_id", user.ID, "created_by", actor.ID)
	httpx.WriteJSON(w, http.StatusCreated, createUserResponse{
		User:     toUserResponse(user),
		Password: password,
	})
}

type listUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// HandleList returns a page of users, ordered by id.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	offset, _ := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)

	users, err := h.UserService.List(ctx, limit, offset)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	resp := listUsersResponse{Users: make([]UserResponse, len(users))}
	for i, u := range users {
		resp.Users[i] = toUserResponse(u)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet returns a single user by path id. Admins may read anyone;
// everyone else only themselves.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actor, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid user id")
		return
	}

	if !actor.IsAdmin() && actor.ID != id {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
		return
	}

	user, err := h.UserService.Get(ctx, id)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type changeRoleRequest struct {
	UserID    int64 `json:"user_id" validate:"required,gt=0"`
	NewRoleID int64 `json:"new_role_id" validate:"required,gt=0"`
}

// HandleChangeRole reassigns another user's role.
func (h *UsersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actor, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req changeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result, err := h.RoleChangeService.ChangeRole(ctx, actor, req.UserID, req.NewRoleID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("role changed",
		"user_id", result.UserID,
		"old_role_id", result.OldRoleID,
		"new_role_id", result.NewRoleID,
		"changed_by", actor.ID,
	)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleDelete removes an account.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actor, ok := UserFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid user id")
		return
	}
	if id == actor.ID {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "cannot delete your own account")
		return
	}

	if err := h.UserService.Delete(ctx, actor, id); err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("user deleted", "user_id", id, "deleted_by", actor.ID)
	w.WriteHeader(http.StatusNoContent)
}
