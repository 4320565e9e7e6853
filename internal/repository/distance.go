package repository

import (
	"github.com/emprestaae/empresta-api/internal/geo"
)

// distanceSQL returns the great-circle distance in kilometres between a
// bound point and the latitude/longitude columns of alias.  It takes three
// arguments: lat, lng, lat (see distanceArgs).  LEAST keeps rounding noise
// from pushing ACOS out of its domain for identical points.
func distanceSQL(alias string) string {
	lat, lng := alias+".latitude", alias+".longitude"
	return "(6371 * ACOS(LEAST(1, COS(RADIANS(?)) * COS(RADIANS(" + lat + ")) * COS(RADIANS(" + lng + ") - RADIANS(?))" +
		" + SIN(RADIANS(?)) * SIN(RADIANS(" + lat + ")))))"
}

func distanceArgs(p geo.Point) []any { return []any{p.Lat, p.Lng, p.Lat} }

// boxCondition is the index-friendly prefilter applied before the exact
// distance is checked in HAVING.
func boxCondition(w *where, alias string, center geo.Point, radiusKm float64) {
	box := geo.BoundingBox(center, radiusKm)
	w.add(alias+".latitude IS NOT NULL AND "+alias+".longitude IS NOT NULL")
	w.add(alias+".latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
	if box.Wraps() {
		w.add("("+alias+".longitude >= ? OR "+alias+".longitude <= ?)", box.MinLng, box.MaxLng)
		return
	}
	w.add(alias+".longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng)
}
