// Package apierror maps handler errors to HTTP responses.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/validation"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPermissionDenied = errors.New("permission denied")
)

const (
	detailNotFound         = "Not found."
	detailNotAuthenticated = "Authentication credentials were not provided."
	detailPermission       = "You do not have permission to perform this action."
)

// ValidationError carries field-keyed messages, answered with 400.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds a ValidationError for one field.
func Field(name, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{name: {message}}}
}

// StateError is a toggle request that does not match the current state,
// such as adding a favorite twice. Answered with 400 {"errors": message}.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

// State builds a StateError.
func State(message string) *StateError {
	return &StateError{Message: message}
}

// FromBinding converts a gin binding error into a ValidationError.
func FromBinding(err error) *ValidationError {
	if fields, ok := validation.Translate(err); ok {
		return &ValidationError{Fields: fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return Field(field, fmt.Sprintf("Expected a value of type %s.", typeErr.Type))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return Field("non_field_errors", "Malformed JSON body.")
	}
	return Field("non_field_errors", err.Error())
}

// Respond writes the response for err and aborts the request.
func Respond(c *gin.Context, err error) {
	var verr *ValidationError
	var serr *StateError

	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, verr.Fields)
	case errors.As(err, &serr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": serr.Message})
	case errors.Is(err, ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": detailNotFound})
	case errors.Is(err, ErrNotAuthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailNotAuthenticated})
	case errors.Is(err, ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": detailPermission})
	default:
		logging.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
	}
}

// Detail aborts with a {"detail": message} body.
func Detail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}
