package rest

import (
	"context"
	"net/http"
	"strconv"

	"smartBidFloor/business/floors"
	"smartBidFloor/domain"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	FloorAdminHandler struct {
		cfgRepo    floors.ConfigRepository
		decisions  DecisionLister
		registry   ModelRegistry
		customerID string
	}

	DecisionLister interface {
		ListDecisions(ctx context.Context, customerID, appID string, limit int) ([]domain.FloorDecision, error)
	}

	ModelRegistry interface {
		Invalidate(key floors.ModelKey)
		Loaded() []floors.ModelKey
	}
)

func NewFloorAdminHandler(
	cfgRepo floors.ConfigRepository,
	decisions DecisionLister,
	registry ModelRegistry,
	customerID string,
) *FloorAdminHandler {
	return &FloorAdminHandler{
		cfgRepo:    cfgRepo,
		decisions:  decisions,
		registry:   registry,
		customerID: customerID,
	}
}

// GET /api/v1/admin/floors/config?app_id=app1&model_id=default_bid_floor
func (h *FloorAdminHandler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	appID := c.QueryParam("app_id")
	modelID := c.QueryParam("model_id")

	if appID == "" || modelID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "app_id and model_id are required"})
	}

	cfg, ok, err := h.cfgRepo.GetFloorConfig(ctx, h.customerID, appID, modelID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "config not found"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(cfg))
}

// PUT /api/v1/admin/floors/config
// body: { "app_id": "app1", "model_id": "m1", "max_ad_units": 2 }
func (h *FloorAdminHandler) UpsertConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var body domain.FloorConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}
	if body.AppID == "" || body.ModelID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "app_id and model_id are required"})
	}
	if body.MaxAdUnits < 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "max_ad_units must not be negative"})
	}
	body.CustomerID = h.customerID

	if err := h.cfgRepo.UpsertFloorConfig(ctx, body); err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(body))
}

// GET /api/v1/admin/floors/decisions?app_id=app1&limit=50
func (h *FloorAdminHandler) ListDecisions(c echo.Context) error {
	ctx := c.Request().Context()
	appID := c.QueryParam("app_id")
	if appID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "app_id is required"})
	}

	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid limit"})
		}
		limit = n
	}

	rows, err := h.decisions.ListDecisions(ctx, h.customerID, appID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rows))
}

// GET /api/v1/admin/floors/models
func (h *FloorAdminHandler) LoadedModels(c echo.Context) error {
	keys := h.registry.Loaded()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(out))
}

// POST /api/v1/admin/floors/models/reload?app_id=app1&model_id=m1
// The next allocation for the model reads the artifact again.
func (h *FloorAdminHandler) ReloadModel(c echo.Context) error {
	appID := c.QueryParam("app_id")
	modelID := c.QueryParam("model_id")
	if appID == "" || modelID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "app_id and model_id are required"})
	}

	key := floors.ModelKey{CustomerID: h.customerID, AppID: appID, ModelID: modelID}
	h.registry.Invalidate(key)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(key.String()))
}
