package storage

import (
	"context"
	"sync"

	"github.com/atinyakov/FitKeeper/internal/gate"
)

// SessionResolver is the part of APIClient used by SessionStream.
type SessionResolver interface {
	Session(ctx context.Context) (*SessionInfo, error)
}

// SessionStream is the identity stream of a CLI invocation. The stored
// token is resolved once, on the first Subscribe, and the result is
// delivered to every subscriber.
type SessionStream struct {
	ctx      context.Context
	resolver SessionResolver

	once sync.Once
	mu   sync.Mutex
	id   *gate.Identity
	err  error
}

// NewSessionStream returns a stream resolving through r.
func NewSessionStream(ctx context.Context, r SessionResolver) *SessionStream {
	return &SessionStream{ctx: ctx, resolver: r}
}

func (s *SessionStream) resolve() {
	s.once.Do(func() {
		info, err := s.resolver.Session(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.err = err
			return
		}
		if info.Handle != "" {
			s.id = &gate.Identity{Handle: info.Handle, Email: info.Email}
		}
	})
}

// Current returns the resolved identity, resolving it if needed.
func (s *SessionStream) Current() *gate.Identity {
	s.resolve()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Subscribe delivers the resolved identity to fn before returning. A
// failed lookup is delivered as no identity; Err reports it.
func (s *SessionStream) Subscribe(fn func(*gate.Identity)) func() {
	fn(s.Current())
	return func() {}
}

// Err returns the lookup error, if any.
func (s *SessionStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
