package service

import (
	"errors"
	"strings"
	"sync"

	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// InitValidator builds the shared validator and registers custom rules.
// It is safe to call more than once.
func InitValidator() {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("goal", func(fl validator.FieldLevel) bool {
			return models.Goal(fl.Field().String()).Valid()
		})
		validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
}

// validateStruct runs the shared validator and reports the first failing
// field as a *models.ValidationError.
func validateStruct(v any) error {
	InitValidator()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewValidationError(lowerFirst(fe.Field()), "failed on "+fe.Tag())
	}
	return models.NewValidationError("request", err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
