// File: internal/validation/validation.go
package validation

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"

	"account-service/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate *validator.Validate
	policy   *bluemonday.Policy
)

func init() {
	validate = validator.New()

	// Report fields by their JSON names so messages match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("notblank", validateNotBlank)
	// Replaces the built-in rule, which accepts addresses without a TLD.
	validate.RegisterValidation("email", validateEmail)

	// StrictPolicy() strips all HTML tags.
	policy = bluemonday.StrictPolicy()
}

// ValidateStruct validates a request and returns a validation *apperror.Error
// carrying one entry per failing field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Validation("Invalid request")
	}

	fields := make([]apperror.FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msg := getErrorMessage(fe)
		fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: msg})
		messages = append(messages, msg)
	}

	return apperror.Validation(strings.Join(messages, "; "), fields...)
}

// getErrorMessage returns a user-friendly error message for validation errors
func getErrorMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(fl validator.FieldLevel) bool {
	return ValidateEmail(fl.Field().String())
}

// ValidateEmail requires a dotted domain and at most 254 characters.
func ValidateEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// SanitizeString removes potentially dangerous characters from user input
func SanitizeString(input string) string {
	// Remove null bytes
	cleaned := strings.ReplaceAll(input, "\x00", "")

	// Sanitize using our strict allow-list policy
	// This will strip all HTML tags, leaving only the text.
	// Entities are unescaped again so names like O'Brien survive intact.
	sanitized := html.UnescapeString(policy.Sanitize(cleaned))

	return strings.TrimSpace(sanitized)
}

// SanitizeFields sanitizes free-text fields in place. Nil pointers are skipped.
func SanitizeFields(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = SanitizeString(*f)
		}
	}
}
