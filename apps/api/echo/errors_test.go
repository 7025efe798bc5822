package echoapi

import (
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

func Test_errorResponse(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	type req struct {
		AttemptID string `json:"attempt_id" validate:"required"`
	}
	vErr := validate.Struct(req{})

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  interface{}
		wantOk   bool
	}{
		{"not found", errors.Wrap(scorm.ErrAttemptNotFound, "getting attempt"), http.StatusNotFound, "not found", true},
		{"unauthenticated", scorm.ErrUnauthenticated, http.StatusUnauthorized, "learner not authenticated", true},
		{"missing jwt", middleware.ErrJWTMissing, http.StatusUnauthorized, middleware.ErrJWTMissing.Message, true},
		{
			"wrapped http error",
			&echo.HTTPError{Code: http.StatusInternalServerError, Internal: echo.NewHTTPError(http.StatusTeapot, "tea")},
			http.StatusTeapot, "tea", true,
		},
		{"validator errors", vErr, http.StatusBadRequest, map[string]string{"attempt_id": "this field is required"}, true},
		{"field error", core.NewFieldError("user_id", "this field is required"), http.StatusBadRequest, map[string]string{"user_id": "this field is required"}, true},
		{"plain validation error", core.NewValidationError(errors.New("bad buffer")), http.StatusBadRequest, "bad buffer", true},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, "Internal Server Error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg, ok := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}
