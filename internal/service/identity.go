package service

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/models"
	"go.uber.org/zap"
)

// IdentityHub fans identity events out to the subscribers of a session.
type IdentityHub struct {
	mu   sync.Mutex
	subs map[string]map[int]func(*gate.Identity)
	next int
}

// NewIdentityHub creates an empty hub.
func NewIdentityHub() *IdentityHub {
	return &IdentityHub{subs: make(map[string]map[int]func(*gate.Identity))}
}

// Subscribe registers fn for events of session sid.
func (h *IdentityHub) Subscribe(sid string, fn func(*gate.Identity)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	if h.subs[sid] == nil {
		h.subs[sid] = make(map[int]func(*gate.Identity))
	}
	h.subs[sid][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sid], id)
			if len(h.subs[sid]) == 0 {
				delete(h.subs, sid)
			}
		})
	}
}

// Publish delivers id to every subscriber of session sid. Subscribers are
// called outside the hub lock.
func (h *IdentityHub) Publish(sid string, id *gate.Identity) {
	h.mu.Lock()
	fns := make([]func(*gate.Identity), 0, len(h.subs[sid]))
	for _, fn := range h.subs[sid] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// Subscribers returns the number of subscribers of session sid.
func (h *IdentityHub) Subscribers(sid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sid])
}

// tokenStream is the identity stream of a single token.
type tokenStream struct {
	ctx       context.Context
	auth      *AuthService
	token     string
	sessionID string
}

// Current resolves the token right now.
func (t *tokenStream) Current() *gate.Identity {
	id, err := t.auth.Resolve(t.ctx, t.token)
	if err != nil {
		if !errors.Is(err, models.ErrUnauthorized) && t.ctx.Err() == nil {
			t.auth.logger.Error("session lookup failed", zap.Error(err))
		}
		return nil
	}
	return id
}

// Subscribe delivers the current identity immediately and later changes of
// the session as they are published.
func (t *tokenStream) Subscribe(fn func(*gate.Identity)) func() {
	unsub := func() {}
	if t.sessionID != "" {
		unsub = t.auth.hub.Subscribe(t.sessionID, fn)
	}
	fn(t.Current())
	return unsub
}
