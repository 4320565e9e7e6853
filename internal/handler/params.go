package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/geo"
	"github.com/emprestaae/empresta-api/internal/repository"
)

const (
	requestTimeout = 5 * time.Second
	defaultLimit   = 20
	maxLimit       = 100
	dateLayout     = "2006-01-02"
)

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pageRequest reads ?page and ?limit.  Out of range values are clamped.
func pageRequest(c echo.Context) repository.PageRequest {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return repository.PageRequest{Page: page, Limit: limit}
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &v, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &v, nil
}

func queryInt(c echo.Context, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return min(max(v, lo), hi)
}

// queryPoint reads ?lat and ?lng.  Both or neither must be given.
func queryPoint(c echo.Context) (*geo.Point, error) {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return nil, err
	}
	lng, err := queryFloat(c, "lng")
	if err != nil {
		return nil, err
	}
	if (lat == nil) != (lng == nil) {
		return nil, badRequest("lat and lng go together")
	}
	p := geo.PointFrom(lat, lng)
	if p != nil && !validPoint(*p) {
		return nil, badRequest("coordinates out of range")
	}
	return p, nil
}

func validPoint(p geo.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, badRequest(name + " must be YYYY-MM-DD")
	}
	return &t, nil
}
