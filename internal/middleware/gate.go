package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/models"
	"go.uber.org/zap"
)

// Cookie names shared with browser clients.
const (
	SessionCookie = "session"
	GuestCookie   = "isGuest"
)

// Resolver turns a session token into an identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*gate.Identity, error)
}

// GatePolicy configures a protected route group.
type GatePolicy struct {
	GuestAllowed  bool
	AutoRedirect  bool
	RedirectAfter time.Duration
}

// BlockedResponse is the body sent to visitors that may not pass.
type BlockedResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Redirect      string `json:"redirect"`
	RedirectAfter int    `json:"redirectAfter,omitempty"`
}

// TokenFromRequest returns the bearer token or the session cookie value.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Gate runs a gate.Gate for every request. Allowed requests reach next with
// the session in their context. Blocked requests get the unauthorized notice.
func Gate(resolver Resolver, policy GatePolicy, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			opts := []gate.Option{gate.WithLogger(logger)}
			if policy.GuestAllowed {
				opts = append(opts, gate.WithGuestAllowed())
			}
			if policy.AutoRedirect {
				opts = append(opts, gate.WithAutoRedirect(policy.RedirectAfter))
			}

			stream := &requestStream{ctx: r.Context(), resolver: resolver, token: TokenFromRequest(r)}
			g := gate.New(stream, &cookieMarker{w: w, r: r}, opts...)
			g.Mount()
			defer g.Unmount()

			if stream.err != nil {
				logger.Error("session lookup failed",
					zap.String("path", r.URL.Path),
					zap.Error(stream.err),
				)
				http.Error(w, "session lookup failed", http.StatusInternalServerError)
				return
			}

			switch v := g.View().(type) {
			case gate.Render:
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), v.Session)))
			case gate.Blocked:
				logger.Debug("request blocked",
					zap.String("path", r.URL.Path),
					zap.Bool("guest", hasGuestCookie(r)),
				)
				writeBlocked(w, r, v)
			default:
				http.Error(w, "session not resolved", http.StatusServiceUnavailable)
			}
		})
	}
}

func writeBlocked(w http.ResponseWriter, r *http.Request, b gate.Blocked) {
	body := BlockedResponse{
		Error:    "unauthorized",
		Message:  b.Notice,
		Redirect: b.RedirectTo,
	}
	code := http.StatusUnauthorized
	if b.RedirectAfter > 0 {
		body.RedirectAfter = int(b.RedirectAfter.Seconds())
		w.Header().Set("Location", b.RedirectTo)
		code = http.StatusSeeOther
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// requestStream resolves the request token once. A rejected token means no
// identity; any other lookup failure is kept in err.
type requestStream struct {
	ctx      context.Context
	resolver Resolver
	token    string
	err      error
}

func (s *requestStream) Current() *gate.Identity {
	if s.token == "" {
		return nil
	}
	id, err := s.resolver.Resolve(s.ctx, s.token)
	if err != nil {
		if !errors.Is(err, models.ErrUnauthorized) {
			s.err = err
		}
		return nil
	}
	return id
}

func (s *requestStream) Subscribe(fn func(*gate.Identity)) func() {
	fn(s.Current())
	return func() {}
}

// cookieMarker is the guest flag carried by the isGuest cookie.
type cookieMarker struct {
	w http.ResponseWriter
	r *http.Request
}

func (m *cookieMarker) IsGuest() bool {
	return hasGuestCookie(m.r)
}

func (m *cookieMarker) ClearGuest() error {
	if hasGuestCookie(m.r) {
		http.SetCookie(m.w, ExpiredCookie(GuestCookie))
	}
	return nil
}

func hasGuestCookie(r *http.Request) bool {
	c, err := r.Cookie(GuestCookie)
	return err == nil && c.Value == "true"
}

// ExpiredCookie returns a cookie that deletes name on the client.
func ExpiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
