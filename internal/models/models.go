// Package models defines the core data structures for users, their
// nutrition records and exercise catalog entries.
package models

import "time"

// User represents an account known to the identity provider.
type User struct {
	// ID is the identity handle issued at registration.
	ID string
	// Email is the login name chosen by the user.
	Email string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
}

// Goal is the training goal selected in the profile.
type Goal string

const (
	// GoalWeightLoss favours calorie-burning work.
	GoalWeightLoss Goal = "Weight Loss"
	// GoalGainWeight favours mass-building work.
	GoalGainWeight Goal = "Gain Weight"
	// GoalMaintain keeps the current balance.
	GoalMaintain Goal = "Maintain"
)

// Valid reports whether g is one of the known goals.
func (g Goal) Valid() bool {
	switch g {
	case GoalWeightLoss, GoalGainWeight, GoalMaintain:
		return true
	}
	return false
}

// Profile holds the editable personal fields of a record.
type Profile struct {
	Name   string  `json:"name" firestore:"name"`
	Weight float64 `json:"weight" firestore:"weight"`
	Height float64 `json:"height" firestore:"height"`
	Age    int     `json:"age" firestore:"age"`
	Gender string  `json:"gender" firestore:"gender"`
	Goal   Goal    `json:"goal" firestore:"goal"`
}

// Exercise is an entry of the user's personal exercise list.
type Exercise struct {
	// ID is taken from a strictly increasing source so that entries with
	// identical names stay distinguishable.
	ID   int64  `json:"id" firestore:"id"`
	Name string `json:"name" firestore:"name"`
}

// Meal is a logged meal with macros derived from its weight.
type Meal struct {
	Name      string    `json:"name" firestore:"name"`
	Grams     float64   `json:"grams" firestore:"grams"`
	Protein   float64   `json:"protein" firestore:"protein"`
	Carbs     float64   `json:"carbs" firestore:"carbs"`
	Fats      float64   `json:"fats" firestore:"fats"`
	Calories  float64   `json:"calories" firestore:"calories"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// UserRecord is the per-user document owned by the record store.
type UserRecord struct {
	// UserID is the identity handle the record is keyed by.
	UserID string `json:"uid" firestore:"uid"`
	Profile
	WeightHistory          []float64  `json:"weightHistory" firestore:"weightHistory"`
	Exercises              []Exercise `json:"exercises" firestore:"exercises"`
	Meals                  []Meal     `json:"meals" firestore:"meals"`
	TotalCaloriesConsumed  float64    `json:"totalCaloriesConsumed" firestore:"totalCaloriesConsumed"`
	RequiredCaloriesPerDay float64    `json:"requiredCaloriesPerDay" firestore:"requiredCaloriesPerDay"`
	// Version is incremented on every write and used for optimistic concurrency.
	Version int64 `json:"version" firestore:"version"`
}

// Record fields addressable by partial updates.
const (
	FieldName                   = "name"
	FieldWeight                 = "weight"
	FieldHeight                 = "height"
	FieldAge                    = "age"
	FieldGender                 = "gender"
	FieldGoal                   = "goal"
	FieldWeightHistory          = "weightHistory"
	FieldExercises              = "exercises"
	FieldMeals                  = "meals"
	FieldTotalCaloriesConsumed  = "totalCaloriesConsumed"
	FieldRequiredCaloriesPerDay = "requiredCaloriesPerDay"
)

// CatalogExercise is an entry of the third-party exercise catalog.
type CatalogExercise struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Target       string   `json:"target"`
	Equipment    string   `json:"equipment"`
	BodyPart     string   `json:"bodyPart"`
	GifURL       string   `json:"gifUrl"`
	Instructions []string `json:"instructions"`
}
