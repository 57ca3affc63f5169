package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details json.RawMessage   `json:"details,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code int
			resp errorResponse
		)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				resp.Error = msg
			} else {
				resp.Error = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Error = origErr.Error()
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Error = origErr.Error()
		case *core.UpstreamError:
			code = origErr.HTTPStatus()
			resp.Error = origErr.Message
			resp.Details = origErr.Details
		case *core.UnexpectedShapeError:
			code = http.StatusInternalServerError
			resp.Error = origErr.Error()
			resp.Details = origErr.Details
		default: // any other error is a server error
			code = http.StatusInternalServerError
			resp.Error = http.StatusText(code)
			if ctx.Echo().Debug {
				resp.Error = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		extras := map[string]interface{}{
			"method":     ctx.Request().Method,
			"path":       ctx.Path(),
			"status":     code,
			"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
		}
		if code >= http.StatusInternalServerError {
			logger.Error(resp.Error, err, extras)
		} else {
			logger.Warn(resp.Error, err, extras)
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
