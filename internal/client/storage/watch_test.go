package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWatchHome_StopsOnRedirect(t *testing.T) {
	var gotAuth string
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(HomeEvent{Type: "session", Classification: "authenticated"})
		_ = conn.WriteJSON(HomeEvent{Type: "quote", Quote: "Keep going"})
		_ = conn.WriteJSON(HomeEvent{Type: "session", Classification: "unauthorized", Redirect: "/landingpage"})
		// never sent
		_ = conn.WriteJSON(HomeEvent{Type: "quote", Quote: "late"})
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, srv.Client())
	c.Token = "tok"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var events []HomeEvent
	if err := c.WatchHome(ctx, func(ev HomeEvent) { events = append(events, ev) }); err != nil {
		t.Fatalf("WatchHome: %v", err)
	}

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events; want 3: %+v", len(events), events)
	}
	if events[1].Quote != "Keep going" || events[2].Redirect != "/landingpage" {
		t.Errorf("events = %+v", events)
	}
}

func TestWatchHome_ServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(HomeEvent{Type: "quote", Quote: "q"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n := 0
	err := NewAPIClient(srv.URL, srv.Client()).WatchHome(ctx, func(HomeEvent) { n++ })
	if err != nil {
		t.Fatalf("WatchHome: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d events; want 1", n)
	}
}

func TestWatchHome_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"nope","redirect":"/landingpage"}`))
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, srv.Client()).WatchHome(context.Background(), func(HomeEvent) {})

	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
}
