package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/service"
)

const genericMessage = "Something went wrong. Please try again later."

// apiKeyPattern matches key query parameters and key headers embedded in error text.
var apiKeyPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|key)[=:]\s*)[^&\s"]+`)

// sanitizeError redacts API keys from error text before it is logged.
func sanitizeError(err error) string {
	return sanitize(err.Error())
}

func sanitize(s string) string {
	return apiKeyPattern.ReplaceAllString(s, "${1}[REDACTED]")
}

// statusFor maps a failure class to the HTTP status returned to the caller.
// Only caller mistakes are 4xx; every vendor-side failure is a 500.
func statusFor(kind service.Kind) int {
	if kind == service.KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes the single error envelope for it.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
	kind := service.KindOf(err)
	status := statusFor(kind)

	message := genericMessage
	var se *service.Error
	if errors.As(err, &se) && se.Message != "" {
		message = sanitize(se.Message)
	}

	attrs := []any{
		"path", c.Request().URL.Path,
		"status", status,
		"kind", kind,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", sanitizeError(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	return c.JSON(status, model.ErrorResponse{Success: false, Message: message})
}

// echoMessages replaces framework error text with caller-facing messages.
var echoMessages = map[int]string{
	http.StatusNotFound:              "Not found.",
	http.StatusMethodNotAllowed:      "Method not allowed.",
	http.StatusRequestEntityTooLarge: "Request body is too large.",
	http.StatusTooManyRequests:       "Too many requests. Please slow down.",
	http.StatusForbidden:             "Forbidden.",
}

// NewHTTPErrorHandler returns Echo's central error handler. Routing errors,
// body-limit rejections, rate limiting and recovered panics all end up here
// and are written as the same envelope the tool handlers use.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			if werr := writeError(c, logger, err); werr != nil {
				logger.Error("write error response", "err", werr)
			}
			return
		}

		status := he.Code
		message, ok := echoMessages[status]
		if !ok {
			if s, isString := he.Message.(string); isString && status < http.StatusInternalServerError {
				message = s
			} else {
				message = genericMessage
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", c.Request().URL.Path, "status", status, "err", sanitizeError(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, model.ErrorResponse{Success: false, Message: message})
		}
		if werr != nil {
			logger.Error("write error response", "err", werr)
		}
	}
}
