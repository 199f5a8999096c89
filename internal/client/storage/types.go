package storage

import (
	"fmt"

	"github.com/atinyakov/FitKeeper/internal/models"
)

// Registration is sent to POST /api/register.
type Registration struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Weight   float64     `json:"weight"`
	Height   float64     `json:"height"`
	Age      int         `json:"age"`
	Gender   string      `json:"gender"`
	Goal     models.Goal `json:"goal"`
}

// SessionInfo is the answer of GET /api/session.
type SessionInfo struct {
	Classification string `json:"classification"`
	Handle         string `json:"handle,omitempty"`
	Email          string `json:"email,omitempty"`
}

// HomeScreen is the answer of GET /api/home.
type HomeScreen struct {
	Greeting       string `json:"greeting"`
	Quote          string `json:"quote"`
	Classification string `json:"classification"`
}

// Workouts is the answer of GET /api/workouts.
type Workouts struct {
	BMI       float64                  `json:"bmi"`
	Goal      models.Goal              `json:"goal"`
	Exercises []models.CatalogExercise `json:"exercises"`
}

// BlockedError is returned when the server gate refuses a request.
type BlockedError struct {
	Message       string `json:"message"`
	Redirect      string `json:"redirect"`
	RedirectAfter int    `json:"redirectAfter,omitempty"`
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s (redirect to %s)", e.Message, e.Redirect)
}

// APIError is a non-2xx answer other than a gate refusal.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("server error %d: %s: %s", e.StatusCode, e.Field, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// HomeEvent is pushed over the home stream.
type HomeEvent struct {
	Type           string `json:"type"`
	Quote          string `json:"quote,omitempty"`
	Classification string `json:"classification,omitempty"`
	Redirect       string `json:"redirect,omitempty"`
}
