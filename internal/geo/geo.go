// Package geo holds the great-circle helpers shared by the location searches.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by every distance computation,
// in Go and in SQL.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// PointFrom returns a point when both coordinates are known.
func PointFrom(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &Point{Lat: *lat, Lng: *lng}
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine distance between a and b in kilometres.
// It uses the same spherical law of cosines form as the SQL projection.
func Distance(a, b Point) float64 {
	c := math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Cos(rad(b.Lng)-rad(a.Lng)) +
		math.Sin(rad(a.Lat))*math.Sin(rad(b.Lat))
	// rounding can push identical points just above 1
	c = math.Max(-1, math.Min(1, c))
	return EarthRadiusKm * math.Acos(c)
}

// Box is a latitude/longitude rectangle.  When it crosses the antimeridian
// MinLng is greater than MaxLng and the longitude range is
// [MinLng, 180] plus [-180, MaxLng].
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of center.  It is a cheap prefilter; the exact cut is still the distance.
func BoundingBox(center Point, radiusKm float64) Box {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	box := Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}
	// near the poles every longitude is in range
	if box.MinLat > -90 && box.MaxLat < 90 {
		if dLng := dLat / math.Cos(rad(center.Lat)); dLng < 180 {
			box.MinLng = wrapLng(center.Lng - dLng)
			box.MaxLng = wrapLng(center.Lng + dLng)
		}
	}
	return box
}

func wrapLng(lng float64) float64 {
	switch {
	case lng < -180:
		return lng + 360
	case lng > 180:
		return lng - 360
	}
	return lng
}

// Wraps reports whether the box crosses the antimeridian.
func (b Box) Wraps() bool { return b.MinLng > b.MaxLng }

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.Wraps() {
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
