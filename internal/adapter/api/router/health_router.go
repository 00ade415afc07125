package router

import (
	"github.com/labstack/echo/v4"

	"uninest/internal/adapter/api/handler"
)

func SetupHealthRouter(e *echo.Echo) {
	healthHandler := handler.NewHealthHandler()

	e.GET("/health", healthHandler.CheckHealth)
}
