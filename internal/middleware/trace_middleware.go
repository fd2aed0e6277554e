package middleware

import (
	"smartBidFloor/business/floors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const HeaderTraceID = "X-Trace-Id"

// TraceID reuses the caller's trace id or starts a new one, and echoes it
// back on the response.
func TraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tid := c.Request().Header.Get(HeaderTraceID)
			if tid == "" {
				tid = uuid.NewString()
			}

			req := c.Request()
			c.SetRequest(req.WithContext(floors.WithTraceID(req.Context(), tid)))
			c.Response().Header().Set(HeaderTraceID, tid)
			c.Set("trace_id", tid)

			return next(c)
		}
	}
}
