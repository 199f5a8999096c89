package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakeCatalog struct {
	list []models.CatalogExercise
	err  error
}

func (c *fakeCatalog) Exercises(context.Context) ([]models.CatalogExercise, error) {
	return c.list, c.err
}

var catalogFixture = []models.CatalogExercise{
	{ID: "1", Name: "Barbell Curl", BodyPart: "Arms"},
	{ID: "2", Name: "Plank", BodyPart: "Core"},
	{ID: "3", Name: "Barbell Squat", BodyPart: "Legs"},
}

func names(list []models.CatalogExercise) []string {
	out := make([]string, 0, len(list))
	for _, ex := range list {
		out = append(out, ex.Name)
	}
	return out
}

func TestBMI(t *testing.T) {
	assert.InDelta(t, 24.22, BMI(70, 170), 0.01)
	assert.Zero(t, BMI(70, 0))
}

func TestFilterExercises(t *testing.T) {
	tests := []struct {
		goal   models.Goal
		search string
		want   []string
	}{
		{models.GoalWeightLoss, "", []string{"Plank", "Barbell Squat"}},
		{models.GoalGainWeight, "", []string{"Barbell Curl", "Barbell Squat"}},
		{models.GoalMaintain, "", []string{"Barbell Curl", "Plank", "Barbell Squat"}},
		{models.GoalMaintain, "  BARBELL ", []string{"Barbell Curl", "Barbell Squat"}},
		{models.GoalWeightLoss, "barbell", []string{"Barbell Squat"}},
		{models.GoalMaintain, "deadlift", []string{}},
	}
	for _, tt := range tests {
		got := FilterExercises(catalogFixture, tt.goal, tt.search)
		assert.Equal(t, tt.want, names(got), "goal=%s search=%q", tt.goal, tt.search)
	}
}

func TestRecommend(t *testing.T) {
	svc := NewWorkoutService(&fakeCatalog{list: catalogFixture}, zap.NewNop())
	rec := &models.UserRecord{Profile: models.Profile{Weight: 70, Height: 170, Goal: models.GoalGainWeight}}

	got := svc.Recommend(context.Background(), rec, "")
	assert.InDelta(t, 24.22, got.BMI, 0.01)
	assert.Equal(t, models.GoalGainWeight, got.Goal)
	assert.Equal(t, []string{"Barbell Curl", "Barbell Squat"}, names(got.Exercises))
}

func TestRecommend_CatalogFailureFallsBackToEmpty(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(&buf), zapcore.WarnLevel)
	svc := NewWorkoutService(&fakeCatalog{err: errors.New("502")}, zap.New(core))

	got := svc.Recommend(context.Background(), &models.UserRecord{}, "")
	assert.NotNil(t, got.Exercises)
	assert.Empty(t, got.Exercises)
	assert.True(t, strings.Contains(buf.String(), "failed to fetch exercises"))
}
