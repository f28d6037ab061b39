// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Failure is the uniform error payload.
type Failure struct {
	Error   string
	Message string
	Code    string
	Context map[string]any
}

// RespondError maps domain errors to the uniform failure payload.
func RespondError(w http.ResponseWriter, err error) {
	var authErr *shared.AuthError
	var valErr *shared.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &authErr):
		msg := authErr.Message
		if msg == "" {
			msg = authErr.Kind.Label()
		}
		Fail(w, authErr.Kind.Status(), Failure{
			Error:   authErr.Kind.Label(),
			Message: msg,
			Code:    authErr.Kind.Code(),
			Context: authErr.Context,
		})
	case errors.As(err, &valErr):
		var ctx map[string]any
		if len(valErr.Fields) > 0 {
			ctx = map[string]any{"details": valErr.Fields}
		}
		Fail(w, http.StatusBadRequest, Failure{Error: "Validation failed", Message: valErr.Message, Code: valErr.Code, Context: ctx})
	case errors.As(err, &fieldErrs):
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[lowerFirst(fe.Field())] = fe.Tag()
		}
		Fail(w, http.StatusBadRequest, Failure{
			Error:   "Validation failed",
			Message: "Request body failed validation",
			Code:    "VALIDATION_ERROR",
			Context: map[string]any{"details": fields},
		})
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, Failure{Error: "Validation failed", Message: err.Error(), Code: "VALIDATION_ERROR"})
	default:
		Fail(w, http.StatusInternalServerError, Failure{Error: "Internal server error", Message: "An unexpected error occurred", Code: "INTERNAL_SERVER_ERROR"})
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
