package services

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCredentials is returned when the username is unknown or the
	// password does not match. Callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken is returned when registering an existing username
	ErrUsernameTaken = errors.New("username already exists")

	// ErrPermissionDenied is returned when a user acts on content they do not own
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthenticated is returned when an operation needs a logged-in user
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError reports which form fields failed validation
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+" "+msg)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// newValidationError converts validator output into a ValidationError.
// Any other error is returned unchanged.
func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
