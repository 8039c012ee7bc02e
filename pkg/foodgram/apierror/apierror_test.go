package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, map[string]interface{}) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)
	c.Request, _ = http.NewRequest("GET", "/api/recipes/", nil)

	Respond(c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return resp.Code, body
}

func TestRespondStatuses(t *testing.T) {
	code, body := respond(t, Field("tags", "This field is required."))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []interface{}{"This field is required."}, body["tags"])

	code, body = respond(t, State("Recipe is already in favorites."))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Recipe is already in favorites.", body["errors"])

	code, body = respond(t, fmt.Errorf("recipe 9: %w", ErrNotFound))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not found.", body["detail"])

	code, _ = respond(t, ErrNotAuthenticated)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = respond(t, ErrPermissionDenied)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = respond(t, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error.", body["detail"])
}

func TestFromBindingTypeError(t *testing.T) {
	var req struct {
		CookingTime int `json:"cooking_time"`
	}
	err := json.Unmarshal([]byte(`{"cooking_time": "soon"}`), &req)
	require.Error(t, err)

	verr := FromBinding(err)
	assert.Contains(t, verr.Fields, "cooking_time")
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string][]string{"b": {"two"}, "a": {"one"}}}
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())
}
