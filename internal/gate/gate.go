// Package gate decides whether a visitor may see a protected view.
//
// A Gate subscribes to an identity stream, classifies the visitor as
// Authenticated, Guest or Unauthorized and turns that classification into a
// View: a loading placeholder, the protected content, or a blocking notice
// that must be dismissed and leads to the landing route.
package gate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LandingRoute is where blocked visitors are sent.
const LandingRoute = "/landingpage"

// Notice is shown to visitors who are not allowed to see a view.
const Notice = "You don't have permission to access this page."

// Identity is an authenticated principal.
type Identity struct {
	Handle string
	Email  string
}

// IdentityStream publishes the current identity and every later change.
type IdentityStream interface {
	// Subscribe registers fn for identity events. The returned function
	// releases the subscription.
	Subscribe(fn func(*Identity)) (unsubscribe func())
	// Current returns the identity known right now, or nil.
	Current() *Identity
}

// GuestMarker is the persisted "continue as guest" flag.
type GuestMarker interface {
	IsGuest() bool
	ClearGuest() error
}

// Session is the visitor state resolved on an identity event.
type Session struct {
	Identity       *Identity
	GuestFlag      bool
	Classification Classification
}

// View is what the gate lets the caller show.
type View interface {
	isView()
}

// Placeholder is shown while the first identity event is pending.
type Placeholder struct{}

// Render carries the session to the protected content.
type Render struct {
	Session Session
}

// Blocked is the unauthorized notice.
type Blocked struct {
	Notice     string
	RedirectTo string
	// RedirectAfter is zero unless automatic redirect is enabled.
	RedirectAfter time.Duration
}

func (Placeholder) isView() {}
func (Render) isView()      {}
func (Blocked) isView()     {}

// Allows reports whether c may see a view with the given guest policy.
func Allows(c Classification, guestAllowed bool) bool {
	switch c.(type) {
	case Authenticated:
		return true
	case Guest:
		return guestAllowed
	default:
		return false
	}
}

// Option configures a Gate.
type Option func(*Gate)

// WithGuestAllowed lets guests see the protected view.
func WithGuestAllowed() Option {
	return func(g *Gate) { g.GuestAllowed = true }
}

// WithAutoRedirect makes blocked views carry a redirect deadline.
func WithAutoRedirect(after time.Duration) Option {
	return func(g *Gate) {
		g.AutoRedirect = true
		g.RedirectAfter = after
	}
}

// WithLogger sets the logger used for guest-marker failures.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// Gate guards a single protected view.
type Gate struct {
	GuestAllowed  bool
	AutoRedirect  bool
	RedirectAfter time.Duration

	stream IdentityStream
	marker GuestMarker
	logger *zap.Logger

	mu       sync.Mutex
	session  *Session
	unsub    func()
	resolved chan struct{}
}

// New builds an unmounted gate.
func New(stream IdentityStream, marker GuestMarker, opts ...Option) *Gate {
	g := &Gate{
		stream:   stream,
		marker:   marker,
		logger:   zap.NewNop(),
		resolved: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount subscribes to the identity stream. Calling Mount on a mounted gate
// is a no-op.
func (g *Gate) Mount() {
	g.mu.Lock()
	if g.unsub != nil {
		g.mu.Unlock()
		return
	}
	g.unsub = func() {}
	g.mu.Unlock()

	unsub := g.stream.Subscribe(g.onIdentity)

	g.mu.Lock()
	g.unsub = unsub
	g.mu.Unlock()
}

func (g *Gate) onIdentity(id *Identity) {
	if id != nil {
		if err := g.marker.ClearGuest(); err != nil {
			g.logger.Warn("failed to clear guest marker", zap.Error(err))
		}
	}
	guest := id == nil && g.marker.IsGuest()

	g.mu.Lock()
	defer g.mu.Unlock()

	first := g.session == nil
	g.session = &Session{
		Identity:       id,
		GuestFlag:      guest,
		Classification: Classify(id, guest),
	}
	if first {
		close(g.resolved)
	}
}

// Session returns the resolved session, or false while loading.
func (g *Gate) Session() (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return Session{}, false
	}
	return *g.session, true
}

// View returns what may be shown right now.
func (g *Gate) View() View {
	s, ok := g.Session()
	if !ok {
		return Placeholder{}
	}
	if Allows(s.Classification, g.GuestAllowed) {
		return Render{Session: s}
	}
	b := Blocked{Notice: Notice, RedirectTo: LandingRoute}
	if g.AutoRedirect {
		b.RedirectAfter = g.RedirectAfter
	}
	return b
}

// Dismiss closes the blocking notice and returns the route to navigate to.
func (g *Gate) Dismiss() string {
	return LandingRoute
}

// Wait blocks until the first identity event or ctx is done and returns the
// view at that moment.
func (g *Gate) Wait(ctx context.Context) (View, error) {
	select {
	case <-g.resolved:
		return g.View(), nil
	case <-ctx.Done():
		return Placeholder{}, ctx.Err()
	}
}

// Unmount releases the stream subscription. It is safe to call more than once.
func (g *Gate) Unmount() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
