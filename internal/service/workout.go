package service

import (
	"context"
	"strings"

	"github.com/atinyakov/FitKeeper/internal/models"
	"go.uber.org/zap"
)

// CatalogClient lists the exercises of the third-party catalog.
type CatalogClient interface {
	Exercises(ctx context.Context) ([]models.CatalogExercise, error)
}

// Recommendation is the workout screen for a user.
type Recommendation struct {
	BMI       float64                  `json:"bmi"`
	Goal      models.Goal              `json:"goal"`
	Exercises []models.CatalogExercise `json:"exercises"`
}

// WorkoutService recommends catalog exercises for a profile.
type WorkoutService struct {
	catalog CatalogClient
	logger  *zap.Logger
}

// NewWorkoutService constructs a WorkoutService over catalog.
func NewWorkoutService(catalog CatalogClient, logger *zap.Logger) *WorkoutService {
	return &WorkoutService{catalog: catalog, logger: logger}
}

// BMI is weight in kilograms over the square of height in metres.
// It is zero when height is unknown.
func BMI(weightKg, heightCm float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return weightKg / (m * m)
}

// Recommend fetches the catalog, drops body parts that do not fit the goal
// and keeps names containing search. A catalog failure yields an empty list.
func (s *WorkoutService) Recommend(ctx context.Context, rec *models.UserRecord, search string) Recommendation {
	out := Recommendation{
		BMI:       BMI(rec.Weight, rec.Height),
		Goal:      rec.Goal,
		Exercises: []models.CatalogExercise{},
	}

	all, err := s.catalog.Exercises(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch exercises", zap.Error(err))
		return out
	}

	out.Exercises = FilterExercises(all, rec.Goal, search)
	return out
}

// FilterExercises applies the goal rule and a case-insensitive name search.
func FilterExercises(all []models.CatalogExercise, goal models.Goal, search string) []models.CatalogExercise {
	excluded := ""
	switch goal {
	case models.GoalWeightLoss:
		excluded = "Arms"
	case models.GoalGainWeight:
		excluded = "Core"
	}
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]models.CatalogExercise, 0, len(all))
	for _, ex := range all {
		if excluded != "" && ex.BodyPart == excluded {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ex.Name), needle) {
			continue
		}
		out = append(out, ex)
	}
	return out
}
