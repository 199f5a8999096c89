// Package http provides the HTTP API of FitKeeper: account and session
// endpoints, the meal ledger, workouts and the home screen.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/middleware"
	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/atinyakov/FitKeeper/internal/service"
	"go.uber.org/zap"
)

// AuthService defines the identity operations required by the HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*gate.Identity, error)
}

// AuthHandler handles registration, sign-in, guest mode and sign-out.
type AuthHandler struct {
	// AuthService performs the underlying identity operations.
	AuthService AuthService
	Logger      *zap.Logger
}

// LoginRequest represents the JSON payload for sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the caller's classification.
type SessionResponse struct {
	Classification string `json:"classification"`
	Handle         string `json:"handle,omitempty"`
	Email          string `json:"email,omitempty"`
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	u, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to save user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "email": u.Email})
}

// Login handles POST /api/login. The token is returned in the body and as
// the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Logger, err, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, middleware.ExpiredCookie(middleware.GuestCookie))
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Guest handles POST /api/guest by setting the guest marker cookie.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.GuestCookie,
		Value:    "true",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, SessionResponse{Classification: gate.Guest{}.String()})
}

// Logout handles POST /api/logout. It revokes the session and clears both
// cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if err := h.AuthService.SignOut(r.Context(), token); err != nil {
			writeError(w, h.Logger, err, "failed to sign out")
			return
		}
	}
	http.SetCookie(w, middleware.ExpiredCookie(middleware.SessionCookie))
	http.SetCookie(w, middleware.ExpiredCookie(middleware.GuestCookie))
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	var id *gate.Identity
	if token := middleware.TokenFromRequest(r); token != "" {
		var err error
		id, err = h.AuthService.Resolve(r.Context(), token)
		if err != nil && !errors.Is(err, models.ErrUnauthorized) {
			writeError(w, h.Logger, err, "session lookup failed")
			return
		}
	}
	guest := false
	if c, err := r.Cookie(middleware.GuestCookie); err == nil && c.Value == "true" {
		guest = true
	}

	resp := SessionResponse{Classification: gate.Classify(id, guest).String()}
	if id != nil {
		resp.Handle = id.Handle
		resp.Email = id.Email
	}
	writeJSON(w, http.StatusOK, resp)
}
