package rest

import (
	"net/http"
	"time"

	"smartBidFloor/pkg/logger"
	"smartBidFloor/pkg/utils"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	AuthHandler struct {
		validator    *validator.Validate
		username     string
		passwordHash string
		tokenTTL     time.Duration
	}

	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
)

func NewAuthHandler(username, passwordHash string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		validator:    validator.New(),
		username:     username,
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
	}
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if h.passwordHash == "" || req.Username != h.username || !utils.CheckPassword(req.Password, h.passwordHash) {
		logger.Warn("Operator login rejected", "username", req.Username)
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "invalid credentials"})
	}

	expiresAt := time.Now().Add(h.tokenTTL)
	token, err := utils.GenerateJWT(req.Username, "admin", h.tokenTTL)
	if err != nil {
		logger.Error("Failed to generate token", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: "failed to generate token"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(LoginResponse{Token: token, ExpiresAt: expiresAt}))
}
