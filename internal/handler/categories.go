package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/cache"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/repository"
)

// CategoryHandler serves the category catalogue through a read-through
// cache; categories change rarely.
type CategoryHandler struct {
	Categories *repository.CategoryRepo
	Cache      *cache.Cache
	TTL        time.Duration
}

func NewCategoryHandler(r *repository.CategoryRepo, c *cache.Cache, ttl time.Duration) *CategoryHandler {
	return &CategoryHandler{Categories: r, Cache: c, TTL: ttl}
}

// List returns the active categories with their item counts.
func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := cache.GetOrLoadJSON(ctx, h.Cache, "categories:active", h.TTL,
		func(ctx context.Context) (*[]model.CategoryWithCount, error) {
			out, err := h.Categories.FindActive(ctx)
			return &out, err
		})
	if err != nil {
		return err
	}
	if list == nil {
		return c.JSON(http.StatusOK, []model.CategoryWithCount{})
	}
	return c.JSON(http.StatusOK, *list)
}

func (h *CategoryHandler) find(ctx context.Context, id string) (*model.Category, error) {
	return cache.GetOrLoadJSON(ctx, h.Cache, "categories:"+id, h.TTL,
		func(ctx context.Context) (*model.Category, error) {
			return h.Categories.FindByID(ctx, id)
		})
}

// Get returns one active category.
func (h *CategoryHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	cat, err := h.find(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if cat == nil || !cat.IsActive {
		return notFound("category")
	}
	return c.JSON(http.StatusOK, cat)
}

// Stats returns item and loan counts for a category.
func (h *CategoryHandler) Stats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	cat, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	if cat == nil {
		return notFound("category")
	}
	stats, err := cache.GetOrLoadJSON(ctx, h.Cache, "categories:"+id+":stats", h.TTL,
		func(ctx context.Context) (*model.CategoryStats, error) {
			s, err := h.Categories.GetStats(ctx, id)
			return &s, err
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
