package utils

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/fathima-sithara/moms/internal/ordering"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
	isoDate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Validator returns the shared validator with the project's custom tags:
// hhmm (24h "HH:MM"), isodate ("YYYY-MM-DD") and phone (10-15 digits after
// normalization).
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return ordering.ValidCutoff(fl.Field().String())
		})
		_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			return isoDate.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsValidPhone(fl.Field().String())
		})
	})
	return validate
}

// FormatValidationErrors converts validator.ValidationErrors into a slice of ValidationError
func FormatValidationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]ValidationError, len(ve))
		for i, fe := range ve {
			out[i] = ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Value: fmt.Sprintf("%v", fe.Value()),
			}
			switch fe.Tag() {
			case "required":
				out[i].Message = fmt.Sprintf("%s is required", fe.Field())
			case "min":
				out[i].Message = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
			case "max":
				out[i].Message = fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
			case "gt":
				out[i].Message = fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
			case "oneof":
				out[i].Message = fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
			case "hhmm":
				out[i].Message = fmt.Sprintf("%s must be a 24h time like 11:00", fe.Field())
			case "isodate":
				out[i].Message = fmt.Sprintf("%s must be a date like 2024-01-31", fe.Field())
			case "phone":
				out[i].Message = fmt.Sprintf("%s must be a valid phone number", fe.Field())
			default:
				out[i].Message = fmt.Sprintf("Validation failed on field '%s' for tag '%s'", fe.Field(), fe.Tag())
			}
		}
		return out
	}
	return nil
}
