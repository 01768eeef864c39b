package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"covidcli/internal/chart"
	apperrors "covidcli/internal/errors"
	"covidcli/internal/series"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func jobValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()

		// Register custom validators
		v.RegisterValidation("date", isDate)
		v.RegisterValidation("colour", isColour)
		v.RegisterValidation("filename", isValidFilename)

		// Use YAML keys in error messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// ValidateStruct validates a job (or part of one) and reports every failing
// field in one VALIDATION error.
func ValidateStruct(v interface{}) error {
	err := jobValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "job validation failed", err)
	}

	messages := make([]string, len(fieldErrs))
	appErr := apperrors.NewAppValidationError("")
	for i, fe := range fieldErrs {
		messages[i] = formatValidationError(fe)
		appErr.WithContext(trimNamespace(fe.Namespace()), messages[i])
	}
	appErr.Message = "invalid job: " + strings.Join(messages, "; ")
	return appErr
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := trimNamespace(err.Namespace())
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, param)
	case "date":
		return fmt.Sprintf("%s must be a date such as 2021-03-01, got %q", field, err.Value())
	case "colour":
		return fmt.Sprintf("%s must be a colour name or #rrggbb, got %q", field, err.Value())
	case "filename":
		return fmt.Sprintf("%s must be a plain file name, got %q", field, err.Value())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// trimNamespace drops the root type from "Job.charts[0].from".
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// Custom validators

func isDate(fl validator.FieldLevel) bool {
	_, err := series.ParseDate(fl.Field().String())
	return err == nil
}

func isColour(fl validator.FieldLevel) bool {
	_, err := chart.ParseColor(fl.Field().String())
	return err == nil
}

// isValidFilename accepts base names only, so outputs stay in the output
// directory.
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" {
		return false
	}
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return false
	}
	return len(filename) <= 255
}
