package router

import (
	"smartBidFloor/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetFloorRoutes(api *echo.Group, handler *rest.FloorHandler, authRequired echo.MiddlewareFunc) {
	grp := api.Group("/floors")
	grp.POST("/allocations", handler.Allocate)
	grp.POST("/allocations/debug", handler.DebugAllocate, authRequired)
}

func SetFloorAdminRoutes(api *echo.Group, handler *rest.FloorAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin/floors", authRequired, adminOnly)

	admin.GET("/config", handler.GetConfig)
	admin.PUT("/config", handler.UpsertConfig)
	admin.GET("/decisions", handler.ListDecisions)
	admin.GET("/models", handler.LoadedModels)
	admin.POST("/models/reload", handler.ReloadModel)
}

func SetAuthRoutes(api *echo.Group, handler *rest.AuthHandler) {
	auth := api.Group("/auth")
	auth.POST("/login", handler.Login)
}

func SetOpsRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})
}
