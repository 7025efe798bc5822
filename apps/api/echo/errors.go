package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "learner not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

	// runtime errors with a fixed http response
	sentinelErrors = []struct {
		err  error
		resp *echo.HTTPError
	}{
		{scorm.ErrAttemptNotFound, errHttpNotFound},
		{scorm.ErrUnauthenticated, errUnauthorized},
	}
)

// errorResponse maps err to a status code and a response body.
// ok is false for unexpected errors, which are answered with a 500.
func errorResponse(err error, translator ut.Translator) (code int, message interface{}, ok bool) {
	cause := errors.Cause(err)
	for _, se := range sentinelErrors {
		if cause == se.err {
			return se.resp.Code, se.resp.Message, true
		}
	}

	switch e := cause.(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message, true
		}
		if inner, isHTTP := e.Internal.(*echo.HTTPError); isHTTP {
			e = inner
		}
		return e.Code, e.Message, true

	case validator.ValidationErrors:
		fields := make(map[string]string, len(e))
		for _, fe := range e {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true

	case *core.ValidationError:
		if fields := e.FieldMap(); fields != nil {
			return http.StatusBadRequest, fields, true
		}
		return http.StatusBadRequest, e.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler of the api.
// Unexpected errors are logged with the learner of the request; a core shutdown error also calls signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, ok := errorResponse(err, translator)
		if !ok {
			var learner scorm.Learner
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				learner = claims.learner()
			}
			msg := message.(string)
			logger.Error(msg, errors.Wrap(err, msg), learner)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, isStr := message.(string); isStr {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
