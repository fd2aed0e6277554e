package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"smartBidFloor/pkg/logger"

	jsonres "smartBidFloor/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escape handlers in the error envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}

	if code >= http.StatusInternalServerError {
		logger.Error("Unhandled request error",
			"trace_id", c.Get("trace_id"),
			"path", c.Path(),
			"error", err,
		)
	}

	status := strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	if status == "" {
		status = "ERROR"
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, jsonres.Error(status, message, nil))
	}
	if werr != nil {
		logger.Error("Failed to write error response", "error", werr)
	}
}
