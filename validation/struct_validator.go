package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/dspcore/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// sampleFormats are the PCM container formats a stream may declare.
var sampleFormats = map[string]bool{"s16": true, "s24": true, "s32": true, "f32": true}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Field names in messages follow the json (or yaml) tag.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "yaml"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})

		_ = validate.RegisterValidation("sample_format", func(fl validator.FieldLevel) bool {
			return sampleFormats[fl.Field().String()]
		})
	})
	return validate
}

// Validate validates a struct using struct tags such as
// `validate:"required,gte=1,sample_format"`.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{Field: e.Field(), Message: message})
		messages = append(messages, e.Field()+": "+message)
	}

	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": fieldErrors}
	return appErr
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "sample_format":
		return "must be one of: s16 s24 s32 f32"
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
