package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/atinyakov/FitKeeper/internal/models"
)

const (
	apiRegister = "/api/register"
	apiLogin    = "/api/login"
	apiGuest    = "/api/guest"
	apiLogout   = "/api/logout"
	apiSession  = "/api/session"
	apiHome     = "/api/home"
	apiRecord   = "/api/record"
	apiMeals    = "/api/meals"
	apiReset    = "/api/meals/reset"
	apiExercise = "/api/exercises"
	apiProfile  = "/api/profile"
	apiCalories = "/api/calories"
	apiWorkouts = "/api/workouts"
)

// APIClient talks to the FitKeeper server. Token and Guest are sent with
// every request as the bearer token and the guest cookie.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	Guest      bool
}

// NewAPIClient returns a client for baseURL. Redirects are not followed so
// that gate refusals reach the caller.
func NewAPIClient(baseURL string, hc *http.Client) *APIClient {
	var c http.Client
	if hc != nil {
		c = *hc
	} else {
		c.Timeout = 10 * time.Second
	}
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &APIClient{BaseURL: baseURL, HTTPClient: &c}
}

// Register creates an account.
func (c *APIClient) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, apiRegister, reg, nil)
}

// Login signs in and returns the session token.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, apiLogin, body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login: empty token")
	}
	return out.Token, nil
}

// ContinueAsGuest asks the server for a guest session.
func (c *APIClient) ContinueAsGuest(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, apiGuest, nil, nil)
}

// Logout revokes the current session.
func (c *APIClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, apiLogout, nil, nil)
}

// Session classifies the current credentials.
func (c *APIClient) Session(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.do(ctx, http.MethodGet, apiSession, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Home returns the home screen.
func (c *APIClient) Home(ctx context.Context) (*HomeScreen, error) {
	var out HomeScreen
	if err := c.do(ctx, http.MethodGet, apiHome, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Record returns the signed-in user's record.
func (c *APIClient) Record(ctx context.Context) (*models.UserRecord, error) {
	return c.record(ctx, http.MethodGet, apiRecord, nil)
}

// AddMeal logs a meal. grams is passed through as typed.
func (c *APIClient) AddMeal(ctx context.Context, name, grams string) (*models.UserRecord, error) {
	return c.record(ctx, http.MethodPost, apiMeals, map[string]string{"name": name, "grams": grams})
}

// ResetDailyTotals clears the meals and the consumed total.
func (c *APIClient) ResetDailyTotals(ctx context.Context) (*models.UserRecord, error) {
	return c.record(ctx, http.MethodPost, apiReset, nil)
}

// AddExercise appends to the personal exercise list.
func (c *APIClient) AddExercise(ctx context.Context, name string) (*models.UserRecord, error) {
	return c.record(ctx, http.MethodPost, apiExercise, map[string]string{"name": name})
}

// UpdateProfile saves one profile field.
func (c *APIClient) UpdateProfile(ctx context.Context, field, value string) (*models.UserRecord, error) {
	return c.record(ctx, http.MethodPatch, apiProfile, map[string]string{"field": field, "value": value})
}

// SetRequiredCalories sets the daily calorie target.
func (c *APIClient) SetRequiredCalories(ctx context.Context, kcal string) (*models.UserRecord, error) {
	return c.record(ctx, http.MethodPut, apiCalories, map[string]string{"requiredCaloriesPerDay": kcal})
}

// Workouts returns the recommended catalog exercises, filtered by search.
func (c *APIClient) Workouts(ctx context.Context, search string) (*Workouts, error) {
	path := apiWorkouts
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var out Workouts
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) record(ctx context.Context, method, path string, body any) (*models.UserRecord, error) {
	var out models.UserRecord
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.Guest {
		req.AddCookie(&http.Cookie{Name: "isGuest", Value: "true"})
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

func decodeFailure(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusSeeOther {
		var blocked BlockedError
		if json.Unmarshal(data, &blocked) == nil && blocked.Redirect != "" {
			return &blocked
		}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(data))
	}
	return apiErr
}
