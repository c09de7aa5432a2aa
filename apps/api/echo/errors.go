package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// httpErrorHandler knows how to handle our errors.
// Whenever a core.shutdown error is caught, the Server is gracefully shut down.
func (s *Server) httpErrorHandler(err error, ctx echo.Context) {
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
			fldErrs[vErr.Field()] = vErr.Translate(s.deps.Translator)
		}
		code = http.StatusBadRequest
		message = fldErrs
	case *core.ValidationError:
		if len(origErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		} else {
			message = origErr.Error()
		}
		code = http.StatusBadRequest
	case *core.PermissionError:
		code = http.StatusForbidden
		message = origErr.Error()
	case *core.NotFoundError:
		code = http.StatusNotFound
		message = origErr.Error()
	case *core.ConflictError:
		code = http.StatusConflict
		message = origErr.Error()
	default: // any other error is a server error
		code = http.StatusInternalServerError
		msg := http.StatusText(http.StatusInternalServerError)
		message = msg

		var usr user.User
		if claims, cErr := getContextClaims(ctx); cErr == nil {
			usr.ID = claims.Subject
			usr.Name = claims.Name
			usr.Username = claims.Username
			usr.Email = claims.Email
		}
		s.deps.Logger.Error(msg, errors.Wrap(err, msg), usr)

		// shutting down...
		if core.IsShutdown(err) {
			s.signalShutdown()
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
