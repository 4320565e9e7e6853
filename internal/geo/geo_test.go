package geo

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kmNorth returns the point d kilometres due north of p.
func kmNorth(p Point, d float64) Point {
	return Point{Lat: p.Lat + d/EarthRadiusKm*180/math.Pi, Lng: p.Lng}
}

func TestDistance_SamePoint(t *testing.T) {
	p := Point{Lat: -23.5505, Lng: -46.6333}
	assert.InDelta(t, 0, Distance(p, p), 1e-6)
}

func TestDistance_KnownCities(t *testing.T) {
	saoPaulo := Point{Lat: -23.5505, Lng: -46.6333}
	rio := Point{Lat: -22.9068, Lng: -43.1729}
	assert.InDelta(t, 361, Distance(saoPaulo, rio), 5)
	assert.InDelta(t, Distance(saoPaulo, rio), Distance(rio, saoPaulo), 1e-9)
}

func TestDistance_RadiusCutoffAndOrdering(t *testing.T) {
	center := Point{Lat: -23.5505, Lng: -46.6333}
	points := map[string]Point{
		"C": kmNorth(center, 15),
		"A": kmNorth(center, 2),
		"B": kmNorth(center, 8),
	}

	type hit struct {
		name string
		dist float64
	}
	var hits []hit
	for name, p := range points {
		if d := Distance(center, p); d <= 10 {
			hits = append(hits, hit{name, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	require.Len(t, hits, 2)
	assert.Equal(t, "A", hits[0].name)
	assert.Equal(t, "B", hits[1].name)
	assert.InDelta(t, 2, hits[0].dist, 0.01)
	assert.InDelta(t, 8, hits[1].dist, 0.01)
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	center := Point{Lat: -23.5505, Lng: -46.6333}
	box := BoundingBox(center, 10)

	assert.True(t, box.Contains(center))
	assert.True(t, box.Contains(kmNorth(center, 9.9)))
	assert.False(t, box.Contains(kmNorth(center, 10.5)))
	// 9.9 km due east stays inside
	east := Point{Lat: center.Lat, Lng: center.Lng + 9.9/(EarthRadiusKm*math.Cos(rad(center.Lat)))*180/math.Pi}
	assert.True(t, box.Contains(east))
}

func TestBoundingBox_NearPole(t *testing.T) {
	box := BoundingBox(Point{Lat: 89.99, Lng: 10}, 50)
	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
}

func TestBoundingBox_AcrossAntimeridian(t *testing.T) {
	center := Point{Lat: -17.7, Lng: 179.95}
	across := Point{Lat: -17.7, Lng: -179.95}
	require.Less(t, Distance(center, across), 50.0)

	box := BoundingBox(center, 50)
	assert.True(t, box.Wraps())
	assert.Greater(t, box.MinLng, 179.0)
	assert.Less(t, box.MaxLng, -179.0)
	assert.True(t, box.Contains(center))
	assert.True(t, box.Contains(across))
	assert.False(t, box.Contains(Point{Lat: -17.7, Lng: 0}))

	west := BoundingBox(Point{Lat: -17.7, Lng: -179.95}, 50)
	assert.True(t, west.Wraps())
	assert.True(t, west.Contains(center))
}

func TestPointFrom(t *testing.T) {
	lat, lng := 1.5, 2.5
	assert.Nil(t, PointFrom(nil, &lng))
	assert.Nil(t, PointFrom(&lat, nil))
	assert.Equal(t, &Point{Lat: 1.5, Lng: 2.5}, PointFrom(&lat, &lng))
}
