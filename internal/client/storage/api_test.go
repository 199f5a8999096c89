package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/FitKeeper/internal/models"
)

// roundTripperFunc allows mocking http.Client transports.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

func TestAPIClient_NetworkError(t *testing.T) {
	c := NewAPIClient("http://example.com", newTestClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	}))

	_, err := c.Record(context.Background())
	if err == nil || !strings.Contains(err.Error(), "GET /api/record failed") {
		t.Errorf("expected network failure, got %v", err)
	}
}

func TestAPIClient_InvalidJSON(t *testing.T) {
	c := NewAPIClient("http://example.com", newTestClient(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("not-json")),
		}, nil
	}))

	_, err := c.Home(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid response") {
		t.Errorf("expected JSON decode error, got %v", err)
	}
}

func TestAPIClient_SendsCredentials(t *testing.T) {
	var gotAuth, gotGuest, gotType string
	c := NewAPIClient("http://example.com", newTestClient(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		gotType = req.Header.Get("Content-Type")
		if ck, err := req.Cookie("isGuest"); err == nil {
			gotGuest = ck.Value
		}
		return &http.Response{
			StatusCode: http.StatusCreated,
			Body:       io.NopCloser(strings.NewReader(`{"uid":"u1","totalCaloriesConsumed":820}`)),
		}, nil
	}))
	c.Token = "tok"
	c.Guest = true

	rec, err := c.AddMeal(context.Background(), "Rice", "200")
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotGuest != "true" {
		t.Errorf("isGuest cookie = %q", gotGuest)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if rec.TotalCaloriesConsumed != 820 {
		t.Errorf("total = %v; want 820", rec.TotalCaloriesConsumed)
	}
}

func TestAPIClient_Blocked(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"notice", http.StatusUnauthorized},
		{"auto redirect", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusSeeOther {
					w.Header().Set("Location", "/landingpage")
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"You don't have permission to access this page.","redirect":"/landingpage","redirectAfter":3}`))
			}))
			defer srv.Close()

			_, err := NewAPIClient(srv.URL, srv.Client()).Record(context.Background())

			var blocked *BlockedError
			if !errors.As(err, &blocked) {
				t.Fatalf("expected BlockedError, got %v", err)
			}
			if blocked.Redirect != "/landingpage" {
				t.Errorf("redirect = %q", blocked.Redirect)
			}
			if blocked.Message != "You don't have permission to access this page." {
				t.Errorf("message = %q", blocked.Message)
			}
		})
	}
}

func TestAPIClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"must be a positive number","field":"grams"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, srv.Client()).AddMeal(context.Background(), "Rice", "0")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Field != "grams" {
		t.Errorf("got %+v", apiErr)
	}
}

func TestAPIClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, nil).Logout(context.Background())
	if err == nil || !strings.Contains(err.Error(), "server error 500: internal error") {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestAPIClient_Endpoints(t *testing.T) {
	type call struct {
		method, path, query string
		body                map[string]string
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, query: r.URL.Query().Get("search")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&c.body)
		}
		calls = append(calls, c)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			_, _ = w.Write([]byte(`{"token":"tok"}`))
		case "/api/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/api/session":
			_, _ = w.Write([]byte(`{"classification":"authenticated","handle":"u1"}`))
		case "/api/workouts":
			_, _ = w.Write([]byte(`{"bmi":22.5,"goal":"Maintain","exercises":[{"id":"1","name":"squat"}]}`))
		default:
			_, _ = w.Write([]byte(`{"uid":"u1"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewAPIClient(srv.URL, srv.Client())

	token, err := c.Login(ctx, "a@b.c", "secret")
	if err != nil || token != "tok" {
		t.Fatalf("Login = %q, %v", token, err)
	}
	info, err := c.Session(ctx)
	if err != nil || info.Handle != "u1" {
		t.Fatalf("Session = %+v, %v", info, err)
	}
	if _, err := c.AddExercise(ctx, "Push ups"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ResetDailyTotals(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UpdateProfile(ctx, "weight", "72"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SetRequiredCalories(ctx, "2000"); err != nil {
		t.Fatal(err)
	}
	w, err := c.Workouts(ctx, "sq uat")
	if err != nil {
		t.Fatal(err)
	}
	if w.Goal != models.GoalMaintain || len(w.Exercises) != 1 {
		t.Errorf("workouts = %+v", w)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{method: http.MethodPost, path: "/api/login", body: map[string]string{"email": "a@b.c", "password": "secret"}},
		{method: http.MethodGet, path: "/api/session"},
		{method: http.MethodPost, path: "/api/exercises", body: map[string]string{"name": "Push ups"}},
		{method: http.MethodPost, path: "/api/meals/reset"},
		{method: http.MethodPatch, path: "/api/profile", body: map[string]string{"field": "weight", "value": "72"}},
		{method: http.MethodPut, path: "/api/calories", body: map[string]string{"requiredCaloriesPerDay": "2000"}},
		{method: http.MethodGet, path: "/api/workouts", query: "sq uat"},
		{method: http.MethodPost, path: "/api/logout"},
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls; want %d", len(calls), len(want))
	}
	for i := range want {
		got := calls[i]
		if got.method != want[i].method || got.path != want[i].path || got.query != want[i].query {
			t.Errorf("call %d = %s %s?%s; want %s %s?%s", i, got.method, got.path, got.query, want[i].method, want[i].path, want[i].query)
		}
		for k, v := range want[i].body {
			if got.body[k] != v {
				t.Errorf("call %d body[%s] = %q; want %q", i, k, got.body[k], v)
			}
		}
	}
}
