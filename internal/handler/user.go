package handler

import (
	"net/http"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"

	"github.com/devnology/storefront/internal/domain/user"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is a User with the password credential stripped.
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// validateRegistration applies the field rules: name 3-50 runes, valid email,
// password 6-100 bytes.
func validateRegistration(req createUserRequest) map[string]string {
	fields := make(map[string]string)
	if n := utf8.RuneCountInString(req.Name); n < 3 || n > 50 {
		fields["name"] = "name must be between 3 and 50 characters"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "email must be a valid address"
	}
	if len(req.Password) < 6 || len(req.Password) > 100 {
		fields["password"] = "password must be between 6 and 100 characters"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if fields := validateRegistration(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	u, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	if err := h.setSession(w, u.ID); err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	if err := h.setSession(w, u.ID); err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) loginWithToken(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		// A valid token for a user that no longer exists is still
		// unauthenticated, not a server fault.
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
