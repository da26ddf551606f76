package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/admin"
	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/grouprequest"
	"github.com/darasahq/darasa/core/student"
	"github.com/darasahq/darasa/core/subject"
	"github.com/darasahq/darasa/core/teacher"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errSessionRevoked       = echo.NewHTTPError(http.StatusUnauthorized, "session superseded by a newer login")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrCode maps domain sentinel errors to HTTP status codes; 0 means the
// error is not a known domain error.
func domainErrCode(err error) int {
	switch err {
	case student.ErrNotFound, teacher.ErrNotFound, admin.ErrNotFound,
		subject.ErrNotFound, group.ErrNotFound, group.ErrSessionNotFound,
		enrollment.ErrNotFound, grouprequest.ErrNotFound:
		return http.StatusNotFound
	case enrollment.ErrDuplicate, enrollment.ErrGroupFull, enrollment.ErrGroupNotActive,
		enrollment.ErrScheduleConflict, group.ErrClassroomConflict, group.ErrTeacherConflict,
		group.ErrSessionExists, subject.ErrInUse, subject.ErrSubjectExists,
		grouprequest.ErrDuplicate, grouprequest.ErrNotDeletable,
		student.ErrEmailExists, teacher.ErrEmailExists, admin.ErrEmailExists:
		return http.StatusConflict
	case grouprequest.ErrInvalidTransition:
		return http.StatusUnprocessableEntity
	case account.ErrPermissionDenied:
		return http.StatusForbidden
	}
	return 0
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if code = domainErrCode(origErr); code > 0 {
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var prin account.Principal
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				prin, _ = claims.principal()
			}
			logger.Error(msg, errors.Wrap(err, msg), prin)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
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
