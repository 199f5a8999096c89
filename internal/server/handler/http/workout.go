package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/FitKeeper/internal/middleware"
	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/atinyakov/FitKeeper/internal/service"
	"go.uber.org/zap"
)

// RecordReader reads a user record.
type RecordReader interface {
	Record(ctx context.Context, uid string) (*models.UserRecord, error)
}

// WorkoutService recommends exercises for a record.
type WorkoutService interface {
	Recommend(ctx context.Context, rec *models.UserRecord, search string) service.Recommendation
}

// WorkoutHandler serves workout recommendations.
type WorkoutHandler struct {
	Records  RecordReader
	Workouts WorkoutService
	Logger   *zap.Logger
}

// Recommend handles GET /api/workouts?search=.
func (h *WorkoutHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Records.Record(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, h.Workouts.Recommend(r.Context(), rec, r.URL.Query().Get("search")))
}
