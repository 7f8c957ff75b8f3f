package http

import (
	"net/http"

	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type AuthHandler struct {
	AuthService  *service.AuthService
	UserService  *service.UserService
	TrustProxy   bool
	SecureCookie bool
}

type registerRequest struct {
	Phone     string `json:"phone" validate:"required,min=5,max=32"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"omitempty,max=64"`
	LastName  string `json:"last_name" validate:"omitempty,max=64"`
}

// HandleRegister creates a new account with the default role.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	user, err := h.UserService.Register(ctx, service.RegisterParams{
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	log.Info("user registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTPCode  string `json:"otp_code" validate:"omitempty,len=6,numeric"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// HandleLogin authenticates and sets the session cookie. The token is also
// returned in the body for API clients that prefer the Authorization header.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	sourceIP := httpx.ClientIP(r, h.TrustProxy)
	result, err := h.AuthService.Login(ctx, req.Email, req.Password, req.OTPCode, sourceIP)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.AuthService.Codec.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("user logged in", "user_id", result.User.ID, "ip", sourceIP)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// HandleLogout clears the session cookie. Tokens are stateless, so logout is
// purely client-side: the cookie is expired and the client discards it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
