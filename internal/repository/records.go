package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/lib/pq"
)

// recordColumns maps record fields to their user_records columns.
var recordColumns = map[string]string{
	models.FieldName:                   "name",
	models.FieldWeight:                 "weight",
	models.FieldHeight:                 "height",
	models.FieldAge:                    "age",
	models.FieldGender:                 "gender",
	models.FieldGoal:                   "goal",
	models.FieldWeightHistory:          "weight_history",
	models.FieldExercises:              "exercises",
	models.FieldMeals:                  "meals",
	models.FieldTotalCaloriesConsumed:  "total_calories_consumed",
	models.FieldRequiredCaloriesPerDay: "required_calories_per_day",
}

// jsonColumns hold JSONB values.
var jsonColumns = map[string]bool{
	"weight_history": true,
	"exercises":      true,
	"meals":          true,
}

const selectRecord = `
	SELECT user_id, name, weight, height, age, gender, goal,
	       weight_history, exercises, meals,
	       total_calories_consumed, required_calories_per_day, version
	  FROM user_records WHERE user_id = $1
`

// PostgresRecordStore keeps one user record per row of user_records.
type PostgresRecordStore struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRecordStore creates a new PostgresRecordStore using the provided *sql.DB.
func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{DB: db}
}

// Get reads the full record of uid. A missing record yields models.ErrNotFound.
func (s *PostgresRecordStore) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	var (
		rec                             models.UserRecord
		goal                            string
		history, exercises, mealsColumn []byte
	)
	err := s.DB.QueryRowContext(ctx, selectRecord, uid).Scan(
		&rec.UserID, &rec.Name, &rec.Weight, &rec.Height, &rec.Age, &rec.Gender, &goal,
		&history, &exercises, &mealsColumn,
		&rec.TotalCaloriesConsumed, &rec.RequiredCaloriesPerDay, &rec.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	rec.Goal = models.Goal(goal)

	if err := json.Unmarshal(history, &rec.WeightHistory); err != nil {
		return nil, fmt.Errorf("decode weight history: %w", err)
	}
	if err := json.Unmarshal(exercises, &rec.Exercises); err != nil {
		return nil, fmt.Errorf("decode exercises: %w", err)
	}
	if err := json.Unmarshal(mealsColumn, &rec.Meals); err != nil {
		return nil, fmt.Errorf("decode meals: %w", err)
	}
	return &rec, nil
}

// Create inserts a new record. A record that already exists yields
// models.ErrUserExists.
func (s *PostgresRecordStore) Create(ctx context.Context, rec *models.UserRecord) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO user_records (
			user_id, name, weight, height, age, gender, goal,
			weight_history, exercises, meals,
			total_calories_consumed, required_calories_per_day, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0)
	`, append([]any{rec.UserID}, args...)...)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	rec.Version = 0
	return nil
}

// UpdateFields overwrites the given fields and bumps the version.
// Fields are applied in name order.
func (s *PostgresRecordStore) UpdateFields(ctx context.Context, uid string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		col, ok := recordColumns[name]
		if !ok {
			return fmt.Errorf("update record: unknown field %q", name)
		}
		v := fields[name]
		if jsonColumns[col] {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			v = raw
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "version = version + 1")
	args = append(args, uid)

	query := fmt.Sprintf("UPDATE user_records SET %s WHERE user_id = $%d", strings.Join(sets, ", "), len(args))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateIfVersion overwrites the whole record if its stored version still
// equals version. Otherwise it returns models.ErrConflict. On success
// rec.Version holds the new version.
func (s *PostgresRecordStore) UpdateIfVersion(ctx context.Context, rec *models.UserRecord, version int64) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE user_records SET
			name = $1, weight = $2, height = $3, age = $4, gender = $5, goal = $6,
			weight_history = $7, exercises = $8, meals = $9,
			total_calories_consumed = $10, required_calories_per_day = $11,
			version = version + 1
		 WHERE user_id = $12 AND version = $13
	`, append(args, rec.UserID, version)...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConflict
	}
	rec.Version = version + 1
	return nil
}

// recordArgs returns the column values of rec in user_records order,
// without user_id and version.
func recordArgs(rec *models.UserRecord) ([]any, error) {
	history, err := json.Marshal(nonNil(rec.WeightHistory))
	if err != nil {
		return nil, fmt.Errorf("encode weight history: %w", err)
	}
	exercises, err := json.Marshal(nonNil(rec.Exercises))
	if err != nil {
		return nil, fmt.Errorf("encode exercises: %w", err)
	}
	meals, err := json.Marshal(nonNil(rec.Meals))
	if err != nil {
		return nil, fmt.Errorf("encode meals: %w", err)
	}
	return []any{
		rec.Name, rec.Weight, rec.Height, rec.Age, rec.Gender, string(rec.Goal),
		history, exercises, meals,
		rec.TotalCaloriesConsumed, rec.RequiredCaloriesPerDay,
	}, nil
}

// nonNil keeps empty lists as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
