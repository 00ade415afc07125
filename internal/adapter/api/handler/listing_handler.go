package handler

import (
	"github.com/labstack/echo/v4"

	"uninest/internal/domain/repository"
	"uninest/internal/usecase"
	"uninest/pkg/errors"
	"uninest/pkg/response"
	"uninest/pkg/utils"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type createListingRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	City        string  `json:"city" validate:"required"`
	Address     string  `json:"address"`
	Rooms       int     `json:"rooms" validate:"omitempty,gt=0"`
}

type updateListingRequest struct {
	Title       string  `json:"title" validate:"omitempty,min=3"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"omitempty,gt=0"`
	City        string  `json:"city"`
	Address     string  `json:"address"`
	Rooms       int     `json:"rooms" validate:"omitempty,gt=0"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	listing, err := h.listingUseCase.CreateListing(c.Request().Context(), userID, usecase.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		City:        req.City,
		Address:     req.Address,
		Rooms:       req.Rooms,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, listing)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingUseCase.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) ListListings(c echo.Context) error {
	pagination := utils.GetPaginationParams(c)

	filter := repository.ListingFilter{
		City:    c.QueryParam("city"),
		OwnerID: c.QueryParam("owner_id"),
		Status:  c.QueryParam("status"),
	}

	listings, total, err := h.listingUseCase.ListListings(c.Request().Context(), filter, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, listings, total, pagination.Page, pagination.PageSize)
}

func (h *ListingHandler) UpdateListing(c echo.Context) error {
	var req updateListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	listing, err := h.listingUseCase.UpdateListing(c.Request().Context(), userID, c.Param("id"), usecase.UpdateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		City:        req.City,
		Address:     req.Address,
		Rooms:       req.Rooms,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) ArchiveListing(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.listingUseCase.ArchiveListing(c.Request().Context(), userID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Listing archived",
	})
}

func (h *ListingHandler) UploadPhoto(c echo.Context) error {
	userID := c.Get("uid").(string)
	listingID := c.Param("id")

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return response.Error(c, errors.BadRequest("A photo file is required", err))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read uploaded file", err))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")

	listing, err := h.listingUseCase.UploadPhoto(c.Request().Context(), userID, listingID, file, contentType)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}
