package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/middleware"
	"github.com/atinyakov/FitKeeper/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamProvider opens the identity stream of a session token.
type StreamProvider interface {
	Stream(ctx context.Context, token string) gate.IdentityStream
}

// HomeHandler serves the home screen and its live stream.
type HomeHandler struct {
	Records       RecordReader
	Streams       StreamProvider
	Logger        *zap.Logger
	QuoteInterval time.Duration
	Upgrader      websocket.Upgrader
}

// HomeResponse is the home screen.
type HomeResponse struct {
	Greeting       string `json:"greeting"`
	Quote          string `json:"quote"`
	Classification string `json:"classification"`
}

// StreamEvent is pushed over the home websocket.
type StreamEvent struct {
	Type           string `json:"type"`
	Quote          string `json:"quote,omitempty"`
	Classification string `json:"classification,omitempty"`
	Redirect       string `json:"redirect,omitempty"`
}

// Home handles GET /api/home.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())

	name := ""
	if uid := middleware.GetUserIDFromContext(r.Context()); uid != "" {
		rec, err := h.Records.Record(r.Context(), uid)
		if err != nil {
			h.Logger.Warn("failed to load record for greeting", zap.String("uid", uid), zap.Error(err))
		} else {
			name = rec.Name
		}
	}

	writeJSON(w, http.StatusOK, HomeResponse{
		Greeting:       service.Greeting(s.Classification, name),
		Quote:          service.RandomQuote(),
		Classification: s.Classification.String(),
	})
}

// OriginChecker returns a websocket origin check matching the CORS allow
// list. An empty list keeps the same-origin default of the upgrader and "*"
// accepts any origin. Requests without an Origin header are not browsers and
// pass.
func OriginChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.ToLower(origin)]
	}
}

// Stream handles GET /api/home/stream. It upgrades to a websocket that
// receives session changes and a new quote every QuoteInterval. The quote
// ticker and the identity subscription are released when the socket closes.
func (h *HomeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFromContext(r.Context())

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	send := func(ev StreamEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			cancel()
		}
	}

	stream := h.Streams.Stream(ctx, middleware.TokenFromRequest(r))
	unsubscribe := stream.Subscribe(func(id *gate.Identity) {
		c := gate.Classify(id, s.GuestFlag)
		ev := StreamEvent{Type: "session", Classification: c.String()}
		if !gate.Allows(c, true) {
			ev.Redirect = gate.LandingRoute
			send(ev)
			cancel()
			return
		}
		send(ev)
	})
	defer unsubscribe()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := h.QuoteInterval
	if interval <= 0 {
		interval = service.QuoteInterval
	}
	send(StreamEvent{Type: "quote", Quote: service.RandomQuote()})
	service.RotateQuotes(ctx, interval, func(q string) {
		send(StreamEvent{Type: "quote", Quote: q})
	})

	mu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	mu.Unlock()
}
