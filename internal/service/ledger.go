package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/FitKeeper/internal/models"
	"go.uber.org/zap"
)

// maxWriteAttempts bounds read-modify-write retries on version conflicts.
const maxWriteAttempts = 3

// Genders accepted by the profile.
var genders = map[string]bool{"Male": true, "Female": true}

// RecordStore is the document store holding one record per user.
type RecordStore interface {
	// Get returns the latest persisted record or models.ErrNotFound.
	Get(ctx context.Context, uid string) (*models.UserRecord, error)
	// Create stores a new record.
	Create(ctx context.Context, rec *models.UserRecord) error
	// UpdateFields overwrites the named top-level fields.
	UpdateFields(ctx context.Context, uid string, fields map[string]any) error
	// UpdateIfVersion overwrites rec if the stored version equals version,
	// otherwise it returns models.ErrConflict.
	UpdateIfVersion(ctx context.Context, rec *models.UserRecord, version int64) error
}

// LedgerService owns meal, exercise and profile mutations of a user record.
type LedgerService struct {
	store  RecordStore
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	lastID int64
}

// NewLedgerService constructs a LedgerService over store.
func NewLedgerService(store RecordStore, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, logger: logger, now: time.Now}
}

// Record returns the full record of uid.
func (s *LedgerService) Record(ctx context.Context, uid string) (*models.UserRecord, error) {
	return s.store.Get(ctx, uid)
}

// AddExercise appends a named exercise to the personal list.
func (s *LedgerService) AddExercise(ctx context.Context, uid, name string) (*models.UserRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "exercise name is required")
	}
	return s.mutate(ctx, uid, func(rec *models.UserRecord) {
		floor := int64(0)
		if n := len(rec.Exercises); n > 0 {
			floor = rec.Exercises[n-1].ID
		}
		rec.Exercises = append(rec.Exercises, models.Exercise{ID: s.nextID(floor), Name: name})
	})
}

// AddMeal validates the input, derives macros and appends the meal while
// adding its calories to the running total of the latest persisted record.
func (s *LedgerService) AddMeal(ctx context.Context, uid, name, grams string) (*models.UserRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "meal name is required")
	}
	g, err := ParseGrams(grams)
	if err != nil {
		return nil, err
	}

	m := DeriveMacros(g)
	meal := models.Meal{
		Name:      name,
		Grams:     g,
		Protein:   m.Protein,
		Carbs:     m.Carbs,
		Fats:      m.Fats,
		Calories:  m.Calories,
		CreatedAt: s.now().UTC(),
	}

	rec, err := s.mutate(ctx, uid, func(rec *models.UserRecord) {
		rec.Meals = append(rec.Meals, meal)
		rec.TotalCaloriesConsumed += meal.Calories
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("meal added",
		zap.String("uid", uid),
		zap.Float64("calories", meal.Calories),
		zap.Float64("total", rec.TotalCaloriesConsumed),
	)
	return rec, nil
}

// ResetDailyTotals zeroes the calorie target and total and clears meals.
// Exercises and weight history are kept.
func (s *LedgerService) ResetDailyTotals(ctx context.Context, uid string) (*models.UserRecord, error) {
	err := s.store.UpdateFields(ctx, uid, map[string]any{
		models.FieldRequiredCaloriesPerDay: 0.0,
		models.FieldTotalCaloriesConsumed:  0.0,
		models.FieldMeals:                  []models.Meal{},
	})
	if err != nil {
		return nil, fmt.Errorf("reset daily totals: %w", err)
	}
	return s.store.Get(ctx, uid)
}

// SetRequiredCalories sets the daily calorie target.
func (s *LedgerService) SetRequiredCalories(ctx context.Context, uid string, kcal float64) (*models.UserRecord, error) {
	if math.IsNaN(kcal) || math.IsInf(kcal, 0) || kcal < 0 {
		return nil, models.NewValidationError(models.FieldRequiredCaloriesPerDay, "must be a non-negative number")
	}
	if err := s.store.UpdateFields(ctx, uid, map[string]any{models.FieldRequiredCaloriesPerDay: kcal}); err != nil {
		return nil, fmt.Errorf("set required calories: %w", err)
	}
	return s.store.Get(ctx, uid)
}

// UpdateProfileField overwrites one profile field. A weight edit also
// appends the new weight to the weight history.
func (s *LedgerService) UpdateProfileField(ctx context.Context, uid, field, value string) (*models.UserRecord, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, models.NewValidationError(field, "value is required")
	}

	var v any
	switch field {
	case models.FieldName:
		v = value
	case models.FieldGender:
		if !genders[value] {
			return nil, models.NewValidationError(field, "must be Male or Female")
		}
		v = value
	case models.FieldGoal:
		if !models.Goal(value).Valid() {
			return nil, models.NewValidationError(field, "unknown goal")
		}
		v = value
	case models.FieldHeight:
		h, err := parsePositive(field, value)
		if err != nil {
			return nil, err
		}
		v = h
	case models.FieldAge:
		a, err := strconv.Atoi(value)
		if err != nil || a <= 0 {
			return nil, models.NewValidationError(field, "must be a positive whole number")
		}
		v = a
	case models.FieldWeight:
		w, err := parsePositive(field, value)
		if err != nil {
			return nil, err
		}
		return s.mutate(ctx, uid, func(rec *models.UserRecord) {
			rec.Weight = w
			rec.WeightHistory = append(rec.WeightHistory, w)
		})
	default:
		return nil, models.NewValidationError(field, "unknown field")
	}

	if err := s.store.UpdateFields(ctx, uid, map[string]any{field: v}); err != nil {
		return nil, fmt.Errorf("update %s: %w", field, err)
	}
	return s.store.Get(ctx, uid)
}

// mutate applies fn to the latest persisted record and writes it back with a
// version check, retrying on conflict.
func (s *LedgerService) mutate(ctx context.Context, uid string, fn func(*models.UserRecord)) (*models.UserRecord, error) {
	for attempt := 1; ; attempt++ {
		rec, err := s.store.Get(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		version := rec.Version
		fn(rec)

		err = s.store.UpdateIfVersion(ctx, rec, version)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, models.ErrConflict) || attempt >= maxWriteAttempts {
			return nil, fmt.Errorf("write record: %w", err)
		}
		s.logger.Debug("record version conflict, retrying",
			zap.String("uid", uid),
			zap.Int("attempt", attempt),
		)
	}
}

// nextID returns a millisecond timestamp that is greater than floor and than
// every id handed out before.
func (s *LedgerService) nextID(floor int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	if id <= floor {
		id = floor + 1
	}
	s.lastID = id
	return id
}

func parsePositive(field, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, models.NewValidationError(field, "must be a positive number")
	}
	return f, nil
}
