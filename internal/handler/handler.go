// Package handler exposes the storefront over HTTP: registration, login,
// catalog browsing, and order placement/history. Business rules live in the
// domain services; this layer decodes requests, resolves the session cookie,
// and maps domain errors onto the error taxonomy.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/devnology/storefront/internal/domain/auth"
	"github.com/devnology/storefront/internal/domain/order"
	"github.com/devnology/storefront/internal/domain/product"
	"github.com/devnology/storefront/internal/domain/user"
)

// sessionCookie is the credential cookie name, shared with the browser client.
const sessionCookie = "token"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CookieSecure marks the session cookie Secure and switches SameSite
	// from Lax to None. Enable in production where the client is served
	// from a different origin over HTTPS.
	CookieSecure bool
}

// Handler serves the public HTTP API.
type Handler struct {
	users    *user.Service
	products product.Repository
	orders   *order.Service
	tokens   *auth.Issuer

	cookieSecure bool
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	users *user.Service,
	products product.Repository,
	orders *order.Service,
	tokens *auth.Issuer,
) *Handler {
	return &Handler{
		users:        users,
		products:     products,
		orders:       orders,
		tokens:       tokens,
		cookieSecure: cfg.CookieSecure,
	}
}

// Register mounts all API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /user/create", h.createUser)
	mux.HandleFunc("POST /user/login", h.login)
	mux.HandleFunc("POST /user/loginWithToken", h.loginWithToken)
	mux.HandleFunc("POST /user/logout", h.logout)
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
}

// authenticate resolves the session cookie into a user id. Missing cookie
// and invalid token are deliberately indistinguishable.
func (h *Handler) authenticate(r *http.Request) (string, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", auth.ErrInvalidToken
	}
	return h.tokens.Verify(c.Value)
}

// setSession issues a token for userID and attaches it as the session cookie.
func (h *Handler) setSession(w http.ResponseWriter, userID string) error {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		return err
	}

	sameSite := http.SameSiteLaxMode
	if h.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: sameSite,
		MaxAge:   int(h.tokens.TTL().Seconds()),
	})
	return nil
}

// clearSession expires the session cookie.
func (h *Handler) clearSession(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if h.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// --- Response helpers ---

type errorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Code: status, Message: message})
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Code:    http.StatusBadRequest,
		Message: "validation failed",
		Fields:  fields,
	})
}

// writeInternalError logs the cause and responds with an opaque 500. The
// detail never crosses the boundary.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
