package service

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/FitKeeper/internal/models"
)

// memStore is an in-memory RecordStore with version checks.
type memStore struct {
	mu        sync.Mutex
	recs      map[string]models.UserRecord
	conflicts int
	writeErr  error
	writes    int
}

func newMemStore(recs ...models.UserRecord) *memStore {
	s := &memStore{recs: map[string]models.UserRecord{}}
	for _, r := range recs {
		s.recs[r.UserID] = r
	}
	return s
}

func clone(r models.UserRecord) *models.UserRecord {
	r.WeightHistory = append([]float64(nil), r.WeightHistory...)
	r.Exercises = append([]models.Exercise(nil), r.Exercises...)
	r.Meals = append([]models.Meal(nil), r.Meals...)
	return &r
}

func (s *memStore) Get(_ context.Context, uid string) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[uid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(r), nil
}

func (s *memStore) Create(_ context.Context, rec *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.recs[rec.UserID]; ok {
		return models.ErrUserExists
	}
	s.recs[rec.UserID] = *clone(*rec)
	return nil
}

func (s *memStore) UpdateFields(_ context.Context, uid string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	r, ok := s.recs[uid]
	if !ok {
		return models.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case models.FieldName:
			r.Name = v.(string)
		case models.FieldGender:
			r.Gender = v.(string)
		case models.FieldGoal:
			r.Goal = models.Goal(v.(string))
		case models.FieldHeight:
			r.Height = v.(float64)
		case models.FieldAge:
			r.Age = v.(int)
		case models.FieldMeals:
			r.Meals = v.([]models.Meal)
		case models.FieldTotalCaloriesConsumed:
			r.TotalCaloriesConsumed = v.(float64)
		case models.FieldRequiredCaloriesPerDay:
			r.RequiredCaloriesPerDay = v.(float64)
		default:
			return errors.New("unsupported field " + k)
		}
	}
	r.Version++
	s.writes++
	s.recs[uid] = r
	return nil
}

func (s *memStore) UpdateIfVersion(_ context.Context, rec *models.UserRecord, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.conflicts > 0 {
		s.conflicts--
		cur := s.recs[rec.UserID]
		cur.Version++
		s.recs[rec.UserID] = cur
		return models.ErrConflict
	}
	cur, ok := s.recs[rec.UserID]
	if !ok {
		return models.ErrNotFound
	}
	if cur.Version != version {
		return models.ErrConflict
	}
	rec.Version = version + 1
	s.recs[rec.UserID] = *clone(*rec)
	s.writes++
	return nil
}
