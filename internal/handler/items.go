package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/geo"
	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/repository"
)

// ItemHandler serves listings, their search and their images.
type ItemHandler struct {
	Items      *repository.ItemRepo
	Users      *repository.UserRepo
	Categories *repository.CategoryRepo
}

func NewItemHandler(i *repository.ItemRepo, u *repository.UserRepo, cats *repository.CategoryRepo) *ItemHandler {
	return &ItemHandler{Items: i, Users: u, Categories: cats}
}

type createItemReq struct {
	CategoryID     string   `json:"categoryId" validate:"required"`
	Title          string   `json:"title" validate:"required,min=3,max=200"`
	Description    string   `json:"description" validate:"required,max=5000"`
	Condition      string   `json:"condition" validate:"required,oneof=new like_new good fair poor"`
	EstimatedValue *float64 `json:"estimatedValue" validate:"omitempty,gte=0"`
	DailyRate      float64  `json:"dailyRate" validate:"gte=0"`
	Latitude       *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Address        *string  `json:"address" validate:"omitempty,max=255"`
}

type updateItemReq struct {
	CategoryID     *string  `json:"categoryId" validate:"omitempty,min=1"`
	Title          *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description    *string  `json:"description" validate:"omitempty,max=5000"`
	Condition      *string  `json:"condition" validate:"omitempty,oneof=new like_new good fair poor"`
	EstimatedValue *float64 `json:"estimatedValue" validate:"omitempty,gte=0"`
	DailyRate      *float64 `json:"dailyRate" validate:"omitempty,gte=0"`
	Latitude       *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Address        *string  `json:"address" validate:"omitempty,max=255"`
	IsAvailable    *bool    `json:"isAvailable"`
}

type addImageReq struct {
	URL       string  `json:"url" validate:"required,url,max=500"`
	AltText   *string `json:"altText" validate:"omitempty,max=255"`
	IsPrimary bool    `json:"isPrimary"`
	SortOrder int     `json:"sortOrder" validate:"gte=0"`
}

// viewer returns the caller's saved location, if any.
func (h *ItemHandler) viewer(ctx context.Context, c echo.Context) (*geo.Point, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return nil, nil
	}
	u, err := h.Users.FindByID(ctx, uid)
	if err != nil || u == nil {
		return nil, err
	}
	return geo.PointFrom(u.Latitude, u.Longitude), nil
}

func (h *ItemHandler) checkCategory(ctx context.Context, id string) error {
	cat, err := h.Categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if cat == nil || !cat.IsActive {
		return badRequest("unknown category")
	}
	return nil
}

func searchFromQuery(c echo.Context) (model.ItemSearch, error) {
	s := model.ItemSearch{
		Search:     strings.TrimSpace(c.QueryParam("q")),
		CategoryID: c.QueryParam("category"),
		Condition:  model.ItemCondition(c.QueryParam("condition")),
		OwnerID:    c.QueryParam("owner"),
	}
	var err error
	if s.IsAvailable, err = queryBool(c, "available"); err != nil {
		return s, err
	}
	if s.MinRate, err = queryFloat(c, "minRate"); err != nil {
		return s, err
	}
	if s.MaxRate, err = queryFloat(c, "maxRate"); err != nil {
		return s, err
	}
	if s.MinRating, err = queryFloat(c, "minRating"); err != nil {
		return s, err
	}
	if s.RadiusKm, err = queryFloat(c, "radius"); err != nil {
		return s, err
	}
	p, err := queryPoint(c)
	if err != nil {
		return s, err
	}
	if p != nil {
		s.Latitude, s.Longitude = &p.Lat, &p.Lng
	}
	if s.RadiusKm != nil && p == nil {
		return s, badRequest("radius needs lat and lng")
	}
	if s.RadiusKm != nil && *s.RadiusKm <= 0 {
		return s, badRequest("radius must be positive")
	}
	return s, nil
}

// Search pages through active items matching the query filters.
func (h *ItemHandler) Search(c echo.Context) error {
	s, err := searchFromQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	viewer, err := h.viewer(ctx, c)
	if err != nil {
		return err
	}
	page, err := h.Items.SearchItems(ctx, s, viewer, pageRequest(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

// Nearby lists available items around ?lat,?lng, closest first.
func (h *ItemHandler) Nearby(c echo.Context) error {
	center, err := queryPoint(c)
	if err != nil {
		return err
	}
	if center == nil {
		return badRequest("lat and lng are required")
	}
	radius := float64(queryInt(c, "radius", 10, 1, 500))
	limit := queryInt(c, "limit", defaultLimit, 1, maxLimit)

	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Items.FindNearby(ctx, *center, radius, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// Get returns an active item with owner, category and images.
func (h *ItemHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	viewer, err := h.viewer(ctx, c)
	if err != nil {
		return err
	}
	it, err := h.Items.FindWithDetails(ctx, c.Param("id"), viewer)
	if err != nil {
		return err
	}
	if it == nil || !it.IsActive {
		return notFound("item")
	}
	return c.JSON(http.StatusOK, it)
}

// Create lists a new item owned by the caller.
func (h *ItemHandler) Create(c echo.Context) error {
	var req createItemReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return badRequest("latitude and longitude go together")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.checkCategory(ctx, req.CategoryID); err != nil {
		return err
	}
	it, err := h.Items.Create(ctx, model.ItemCreate{
		OwnerID:        middleware.UserID(c),
		CategoryID:     req.CategoryID,
		Title:          req.Title,
		Description:    req.Description,
		Condition:      model.ItemCondition(req.Condition),
		EstimatedValue: req.EstimatedValue,
		DailyRate:      req.DailyRate,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Address:        req.Address,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, it)
}

// Update changes the fields present in the body.  Only the owner may.
func (h *ItemHandler) Update(c echo.Context) error {
	var req updateItemReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.Items.CheckOwner(ctx, id, middleware.UserID(c)); err != nil {
		return fail(err)
	}
	if req.CategoryID != nil {
		if err := h.checkCategory(ctx, *req.CategoryID); err != nil {
			return err
		}
	}
	patch := model.ItemPatch{
		CategoryID:     req.CategoryID,
		Title:          req.Title,
		Description:    req.Description,
		EstimatedValue: req.EstimatedValue,
		DailyRate:      req.DailyRate,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Address:        req.Address,
		IsAvailable:    req.IsAvailable,
	}
	if req.Condition != nil {
		cond := model.ItemCondition(*req.Condition)
		patch.Condition = &cond
	}
	it, err := h.Items.Update(ctx, id, patch)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, it)
}

// Delete deactivates the item.  Its loans and reviews stay.
func (h *ItemHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.Items.CheckOwner(ctx, id, middleware.UserID(c)); err != nil {
		return fail(err)
	}
	if _, err := h.Items.SoftDelete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine pages through the caller's active items.
func (h *ItemHandler) Mine(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	page, err := h.Items.FindByOwner(ctx, middleware.UserID(c), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// AddImage attaches an image URL to the caller's item.
func (h *ItemHandler) AddImage(c echo.Context) error {
	var req addImageReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.Items.CheckOwner(ctx, id, middleware.UserID(c)); err != nil {
		return fail(err)
	}
	img, err := h.Items.AddImage(ctx, model.ItemImageCreate{
		ItemID:    id,
		URL:       req.URL,
		AltText:   req.AltText,
		IsPrimary: req.IsPrimary,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, img)
}

// SetPrimaryImage makes one image the item's primary image.
func (h *ItemHandler) SetPrimaryImage(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.Items.CheckOwner(ctx, id, middleware.UserID(c)); err != nil {
		return fail(err)
	}
	if err := h.Items.SetPrimaryImage(ctx, id, c.Param("imageId")); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) DeleteImage(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	if _, err := h.Items.CheckOwner(ctx, id, middleware.UserID(c)); err != nil {
		return fail(err)
	}
	ok, err := h.Items.DeleteImage(ctx, id, c.Param("imageId"))
	if err != nil {
		return err
	}
	if !ok {
		return notFound("image")
	}
	return c.NoContent(http.StatusNoContent)
}
