package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status  string       `json:"status"`
	Error   string       `json:"error,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var (
		msgs    []string
		details []FieldError
	)

	for _, err := range errs {
		var msg string

		switch err.ActualTag() {
		case "required":
			msg = fmt.Sprintf("field %s is a required field", err.Field())
		case "email":
			msg = fmt.Sprintf("field %s is not a valid email", err.Field())
		case "len":
			msg = fmt.Sprintf("field %s must be exactly %s characters long", err.Field(), err.Param())
		case "numeric":
			msg = fmt.Sprintf("field %s must contain only digits", err.Field())
		case "max":
			msg = fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param())
		case "min":
			msg = fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param())
		case "datetime":
			msg = fmt.Sprintf("field %s must be a date in %s format", err.Field(), err.Param())
		case "required_without":
			msg = fmt.Sprintf("field %s is required when %s is missing", err.Field(), err.Param())
		default:
			msg = fmt.Sprintf("field %s is not valid", err.Field())
		}

		msgs = append(msgs, msg)
		details = append(details, FieldError{Field: err.Field(), Message: msg})
	}

	return Response{
		Status:  StatusError,
		Error:   "Validation failed: " + strings.Join(msgs, ", "),
		Details: details,
	}
}
