package router

import (
	"github.com/labstack/echo/v4"

	"uninest/internal/adapter/api/handler"
	"uninest/internal/adapter/api/middleware"
)

func SetupFavoriteRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	favoriteHandler := handler.GetFavoriteHandler()

	favorites := e.Group("/v1/favorites")
	favorites.Use(authMiddleware.Authenticate)

	favorites.GET("", favoriteHandler.ListFavorites)
	favorites.POST("/:listingId", favoriteHandler.AddFavorite)
	favorites.DELETE("/:listingId", favoriteHandler.RemoveFavorite)
}
