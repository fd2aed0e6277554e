package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartBidFloor/business/floors"
	"smartBidFloor/pkg/utils"

	jsonres "smartBidFloor/pkg/response"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) jsonres.Body {
	t.Helper()
	var body jsonres.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	utils.SetJWTSecret("test-secret")

	valid, err := utils.GenerateJWT("ops-1", "admin", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateJWT("ops-1", "admin", -time.Hour)
	require.NoError(t, err)
	anonymous, err := utils.GenerateJWT("", "admin", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantMsg  string
	}{
		{name: "valid token", header: "Bearer " + valid, wantCode: http.StatusOK},
		{name: "missing header", wantCode: http.StatusUnauthorized, wantMsg: "Missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantMsg: "Invalid authorization format"},
		{name: "garbage token", header: "Bearer abc", wantCode: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "expired token", header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "no subject", header: "Bearer " + anonymous, wantCode: http.StatusForbidden, wantMsg: "Invalid user ID in token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := AuthMiddleware()(func(c echo.Context) error {
				assert.Equal(t, "ops-1", c.Get("user_id"))
				assert.Equal(t, "admin", c.Get("role"))
				return c.NoContent(http.StatusOK)
			})
			require.NoError(t, h(c))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeError(t, rec).Error.Message)
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	for role, want := range map[string]int{
		"admin":  http.StatusOK,
		"ADMIN":  http.StatusOK,
		"viewer": http.StatusForbidden,
		"":       http.StatusForbidden,
	} {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if role != "" {
			c.Set("role", role)
		}

		h := AdminOnly()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		require.NoError(t, h(c))
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}

func TestTraceID(t *testing.T) {
	e := echo.New()
	var seen string
	e.Use(TraceID())
	e.GET("/", func(c echo.Context) error {
		seen = floors.TraceIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTraceID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderTraceID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(HeaderTraceID))
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/boom", func(c echo.Context) error { return errors.New("kaboom") })
	e.GET("/teapot", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", decodeError(t, rec).Error.Message)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
}
