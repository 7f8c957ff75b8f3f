package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
)

var validate = validator.New()

// decodeJSON parses and validates a request body. Unknown fields are
// rejected so typos surface as 400s instead of silently doing nothing.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("malformed JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return errors.New("invalid field " + f.Field() + " (" + f.Tag() + ")")
		}
		return errors.New("invalid request body")
	}
	return nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors are logged and surfaced as opaque 500s.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, service.ErrTwoFARequired):
		httpx.WriteError(w, http.StatusUnauthorized, "two_fa_required", err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, service.ErrIPNotAllowed):
		httpx.WriteError(w, http.StatusForbidden, "ip_not_allowed", err.Error())
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	default:
		log.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// UserResponse is the public shape of a user. Password hashes and TOTP
// secrets never leave the service.
type UserResponse struct {
	ID             int64          `json:"id"`
	Phone          string         `json:"phone"`
	Email          string         `json:"email"`
	Nick           *string        `json:"nick,omitempty"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	RoleID         int64          `json:"role_id"`
	TwoFAEnabled   bool           `json:"two_fa_enabled"`
	EmailVerified  bool           `json:"email_verified"`
	PhoneVerified  bool           `json:"phone_verified"`
	SecondaryEmail *string        `json:"secondary_email,omitempty"`
	Settings       map[string]any `json:"security_settings,omitempty"`
	LastLogin      *time.Time     `json:"last_login,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Phone:          u.Phone,
		Email:          u.Email,
		Nick:           u.Nick,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		RoleID:         u.RoleID,
		TwoFAEnabled:   u.TwoFAEnabled,
		EmailVerified:  u.EmailVerified,
		PhoneVerified:  u.PhoneVerified,
		SecondaryEmail: u.SecondaryEmail,
		Settings:       u.SecuritySettings,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
