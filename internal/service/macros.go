package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/atinyakov/FitKeeper/internal/models"
)

// Macro ratios per gram of food and calories per gram of macro. This is a
// fixed heuristic, not nutritional data.
const (
	proteinPerGram = 0.20
	carbsPerGram   = 0.30
	fatsPerGram    = 0.10

	kcalPerProtein = 4
	kcalPerCarb    = 4
	kcalPerFat     = 9
)

// maxGrams is the heaviest single meal accepted.
const maxGrams = 100_000

// Macros are the values derived from a meal's weight.
type Macros struct {
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Calories float64 `json:"calories"`
}

// DeriveMacros computes macros for grams of food.
func DeriveMacros(grams float64) Macros {
	m := Macros{
		Protein: proteinPerGram * grams,
		Carbs:   carbsPerGram * grams,
		Fats:    fatsPerGram * grams,
	}
	m.Calories = m.Protein*kcalPerProtein + m.Carbs*kcalPerCarb + m.Fats*kcalPerFat
	return m
}

// ParseGrams parses a user-entered weight. It must be a number greater than
// zero and at most maxGrams.
func ParseGrams(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, models.NewValidationError("grams", "grams is required")
	}
	g, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(g) || math.IsInf(g, 0) {
		return 0, models.NewValidationError("grams", "grams must be a number")
	}
	if g <= 0 {
		return 0, models.NewValidationError("grams", "grams must be greater than zero")
	}
	if g > maxGrams {
		return 0, models.NewValidationError("grams", fmt.Sprintf("grams must be at most %d", maxGrams))
	}
	return g, nil
}
