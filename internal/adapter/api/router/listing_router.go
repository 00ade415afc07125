package router

import (
	"github.com/labstack/echo/v4"

	"uninest/internal/adapter/api/handler"
	"uninest/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	listingHandler := handler.GetListingHandler()

	// Browsing is public; publishing and editing require an account.
	e.GET("/v1/listings", listingHandler.ListListings)
	e.GET("/v1/listings/:id", listingHandler.GetListing)

	protected := e.Group("/v1/listings")
	protected.Use(authMiddleware.Authenticate)

	protected.POST("", listingHandler.CreateListing)
	protected.PATCH("/:id", listingHandler.UpdateListing)
	protected.DELETE("/:id", listingHandler.ArchiveListing)
	protected.POST("/:id/photos", listingHandler.UploadPhoto)
}
