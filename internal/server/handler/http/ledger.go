package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/FitKeeper/internal/middleware"
	"github.com/atinyakov/FitKeeper/internal/models"
	"go.uber.org/zap"
)

// LedgerService defines the record operations required by the LedgerHandler.
type LedgerService interface {
	Record(ctx context.Context, uid string) (*models.UserRecord, error)
	AddExercise(ctx context.Context, uid, name string) (*models.UserRecord, error)
	AddMeal(ctx context.Context, uid, name, grams string) (*models.UserRecord, error)
	ResetDailyTotals(ctx context.Context, uid string) (*models.UserRecord, error)
	SetRequiredCalories(ctx context.Context, uid string, kcal float64) (*models.UserRecord, error)
	UpdateProfileField(ctx context.Context, uid, field, value string) (*models.UserRecord, error)
}

// LedgerHandler serves the record of the authenticated user.
type LedgerHandler struct {
	Ledger LedgerService
	Logger *zap.Logger
}

// textValue accepts a JSON string or number and keeps its text.
type textValue string

func (v *textValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = textValue(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = textValue(n.String())
	return nil
}

// MealRequest is the payload of POST /api/meals.
type MealRequest struct {
	Name  string    `json:"name"`
	Grams textValue `json:"grams"`
}

// ExerciseRequest is the payload of POST /api/exercises.
type ExerciseRequest struct {
	Name string `json:"name"`
}

// ProfileRequest is the payload of PATCH /api/profile.
type ProfileRequest struct {
	Field string    `json:"field"`
	Value textValue `json:"value"`
}

// CaloriesRequest is the payload of PUT /api/calories.
type CaloriesRequest struct {
	RequiredCaloriesPerDay textValue `json:"requiredCaloriesPerDay"`
}

// Record handles GET /api/record.
func (h *LedgerHandler) Record(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Ledger.Record(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AddExercise handles POST /api/exercises.
func (h *LedgerHandler) AddExercise(w http.ResponseWriter, r *http.Request) {
	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec, err := h.Ledger.AddExercise(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Name)
	if err != nil {
		writeError(w, h.Logger, err, "failed to save")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// AddMeal handles POST /api/meals.
func (h *LedgerHandler) AddMeal(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec, err := h.Ledger.AddMeal(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Name, string(req.Grams))
	if err != nil {
		writeError(w, h.Logger, err, "failed to save")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ResetDailyTotals handles POST /api/meals/reset.
func (h *LedgerHandler) ResetDailyTotals(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Ledger.ResetDailyTotals(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err, "failed to save")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SetRequiredCalories handles PUT /api/calories.
func (h *LedgerHandler) SetRequiredCalories(w http.ResponseWriter, r *http.Request) {
	var req CaloriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	kcal, err := strconv.ParseFloat(string(req.RequiredCaloriesPerDay), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "must be a number",
			Field: models.FieldRequiredCaloriesPerDay,
		})
		return
	}
	rec, err := h.Ledger.SetRequiredCalories(r.Context(), middleware.GetUserIDFromContext(r.Context()), kcal)
	if err != nil {
		writeError(w, h.Logger, err, "failed to save")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateProfile handles PATCH /api/profile.
func (h *LedgerHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Field == "" {
		writeErrorMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec, err := h.Ledger.UpdateProfileField(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Field, string(req.Value))
	if err != nil {
		writeError(w, h.Logger, err, "failed to save")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
