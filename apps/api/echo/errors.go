package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Internal failures are logged and answered with a 500; the server keeps serving.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := httpError(err)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			var person core.Person
			if caller, cErr := getCaller(ctx); cErr == nil {
				person = core.Person{ID: strconv.Itoa(caller.ID), Username: caller.Username}
			}
			logger.Error(msg, errors.Wrap(err, msg), person)
			if ctx.Echo().Debug {
				message = echo.Map{"error": err.Error()}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// httpError maps err to a status code and a response body.
// Authorization denials share the "not found" response of missing resources.
func httpError(err error) (int, interface{}) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		if m, ok := httpErr.Message.(string); ok {
			return httpErr.Code, echo.Map{"error": m}
		}
		return httpErr.Code, httpErr.Message
	}

	switch core.FailureOf(err) {
	case core.FailureUnauthorized:
		return http.StatusUnauthorized, echo.Map{"error": core.ErrAuthenticationFailed.Error()}
	case core.FailureNotFound:
		return http.StatusNotFound, echo.Map{"error": core.ErrNotFound.Error()}
	case core.FailureConflict:
		var conflict *core.ConflictError
		errors.As(err, &conflict)
		if conflict.Field != "" {
			return http.StatusConflict, map[string]string{conflict.Field: conflict.Msg}
		}
		return http.StatusConflict, echo.Map{"error": conflict.Msg}
	case core.FailureValidation:
		return http.StatusBadRequest, validationMessage(err)
	default:
		return http.StatusInternalServerError, echo.Map{"error": http.StatusText(http.StatusInternalServerError)}
	}
}

func validationMessage(err error) interface{} {
	var (
		valErr    *core.ValidationError
		refErr    *core.ReferentialError
		intakeErr *core.IntakeError
		fldErrs   validator.ValidationErrors
	)
	switch {
	case errors.As(err, &valErr):
		if len(valErr.Fields) == 0 {
			return echo.Map{"error": valErr.Error()}
		}
		m := make(map[string]string, len(valErr.Fields))
		for _, fErr := range valErr.Fields {
			m[fErr.Field] = fErr.Error
		}
		return m
	case errors.As(err, &refErr):
		return map[string]string{refErr.Field: "does not reference an existing record"}
	case errors.As(err, &intakeErr):
		return echo.Map{"error": intakeErr.Msg, "reason": intakeErr.Reason}
	case errors.As(err, &fldErrs):
		m := make(map[string]string, len(fldErrs))
		for _, fe := range fldErrs {
			m[fe.Field()] = fe.Error()
		}
		return m
	}
	return echo.Map{"error": err.Error()}
}
