package middleware

import (
	"net/http"
	"strings"

	"smartBidFloor/pkg/logger"
	"smartBidFloor/pkg/utils"

	jsonres "smartBidFloor/pkg/response"

	"github.com/labstack/echo/v4"
)

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. On failure the second value is the message shown to the caller.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", "Invalid authorization format"
	}
	return token, ""
}

func deny(c echo.Context, code int, message string) error {
	status := "UNAUTHORIZED"
	if code == http.StatusForbidden {
		status = "FORBIDDEN"
	}
	return c.JSON(code, jsonres.Error(status, message, nil))
}

// AuthMiddleware checks the bearer token of operator calls and exposes the
// operator as user_id and role on the echo context.
func AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, problem := bearerToken(c.Request())
			if problem != "" {
				return deny(c, http.StatusUnauthorized, problem)
			}

			// ParseJWT rejects expired and unsigned tokens.
			claims, err := utils.ParseJWT(token)
			if err != nil {
				logger.Warn("Rejected operator token", "path", c.Path(), "error", err)
				return deny(c, http.StatusUnauthorized, "Invalid token")
			}
			if claims.UserID == "" {
				return deny(c, http.StatusForbidden, "Invalid user ID in token")
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			c.Set("token", token)
			return next(c)
		}
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, _ := c.Get("role").(string); !strings.EqualFold(role, "admin") {
				return deny(c, http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}
