// Package catalog is a client for the exercisedb exercise catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/FitKeeper/internal/models"
)

const (
	defaultBaseURL = "https://exercisedb.p.rapidapi.com"
	defaultHost    = "exercisedb.p.rapidapi.com"
)

// FetchError reports a failed catalog request.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client fetches exercises from the catalog.
type Client struct {
	APIKey     string
	Host       string
	BaseURL    string
	HTTPClient *http.Client
}

// Exercises returns the whole catalog.
func (c *Client) Exercises(ctx context.Context) ([]models.CatalogExercise, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	host := c.Host
	if host == "" {
		host = defaultHost
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/exercises", nil)
	if err != nil {
		return nil, &FetchError{Op: "create request", Err: err}
	}
	req.Header.Set("x-rapidapi-key", c.APIKey)
	req.Header.Set("x-rapidapi-host", host)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: "execute request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Op:  "request",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var out []models.CatalogExercise
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &FetchError{Op: "decode response", Err: err}
	}
	return out, nil
}
