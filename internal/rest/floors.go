package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"smartBidFloor/business/floors"
	"smartBidFloor/domain"
	"smartBidFloor/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

type (
	FloorHandler struct {
		validate     *validator.Validate
		floorService FloorService
		timeout      time.Duration
	}

	FloorService interface {
		Allocate(ctx context.Context, req domain.AllocationRequest) (domain.Allocation, error)
		AllocateBatch(ctx context.Context, reqs []domain.AllocationRequest) ([]domain.Allocation, error)
		DebugAllocate(ctx context.Context, req domain.AllocationRequest) ([]domain.AllocationDebug, error)
	}
)

func NewFloorHandler(svc FloorService) *FloorHandler {
	return &FloorHandler{
		validate:     validator.New(),
		floorService: svc,
		timeout:      10 * time.Second,
	}
}

// statusFor maps engine errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, floors.ErrNoCandidates),
		errors.Is(err, floors.ErrUnsupportedCardinality),
		errors.Is(err, floors.ErrDuplicateFloorID),
		errors.Is(err, floors.ErrInvalidFloor):
		return http.StatusBadRequest
	case errors.Is(err, floors.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, floors.ErrModelExpected), errors.Is(err, floors.ErrInvalidEpsilon):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *FloorHandler) fail(c echo.Context, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("floor allocation failed",
			"trace_id", floors.TraceIDFromContext(c.Request().Context()),
			"status", code,
			"error", err,
		)
	}
	return c.JSON(code, ResponseError{Message: err.Error()})
}

// POST /api/v1/floors/allocations
// body: one allocation request, or {"users": [...]} for a batch
func (h *FloorHandler) Allocate(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if _, batch := probe["users"]; batch {
		var req domain.BatchAllocationRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
		}
		if err := h.validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}

		out, err := h.floorService.AllocateBatch(ctx, req.Users)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(http.StatusOK, domain.BatchAllocationResponse{Allocations: out})
	}

	var req domain.AllocationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	out, err := h.floorService.Allocate(ctx, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/v1/floors/allocations/debug
func (h *FloorHandler) DebugAllocate(c echo.Context) error {
	var req domain.AllocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	out, err := h.floorService.DebugAllocate(ctx, req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(out))
}
