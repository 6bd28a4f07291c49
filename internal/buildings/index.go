// Package buildings answers proximity questions over the building dataset.
package buildings

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"corner-ranker/internal/city"
)

// MetersPerDegree is the flat-earth scale used for proximity checks.
const MetersPerDegree = 111000.0

// slack keeps boundary points inside the prefilter rectangle; the exact
// distance test decides membership.
const slack = 1e-9

type item struct {
	rect rtreego.Rect
	b    city.Building
}

func (it item) Bounds() rtreego.Rect { return it.rect }

// Index holds the valid buildings of a dataset in an R-tree.
type Index struct {
	tree  *rtreego.Rtree
	valid []city.Building
}

// NewIndex indexes every building with finite coordinates.
func NewIndex(all []city.Building) *Index {
	ix := &Index{tree: rtreego.NewTree(2, 25, 50)}
	for _, b := range all {
		if !b.Valid() {
			continue
		}
		ix.valid = append(ix.valid, b)
		ix.tree.Insert(item{
			rect: rtreego.Point{b.Coordinates.Lon(), b.Coordinates.Lat()}.ToRect(slack),
			b:    b,
		})
	}
	return ix
}

// Len returns the number of indexed (valid) buildings. A nil index is empty.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.valid)
}

// Valid returns the indexed buildings in input order.
func (ix *Index) Valid() []city.Building {
	if ix == nil {
		return nil
	}
	return ix.valid
}

// CountNearby counts buildings within radius degrees of p, using the
// equirectangular approximation dx = dLng*cos(lat)*111000, dy = dLat*111000.
func (ix *Index) CountNearby(p orb.Point, radius float64) int {
	if ix.Len() == 0 || radius < 0 {
		return 0
	}
	cosLat := math.Cos(p.Lat() * math.Pi / 180)
	lngSpan := 360.0
	if cosLat > 1e-6 {
		lngSpan = math.Min(radius/cosLat, 360)
	}

	bb, err := rtreego.NewRectFromPoints(
		rtreego.Point{p.Lon() - lngSpan - slack, p.Lat() - radius - slack},
		rtreego.Point{p.Lon() + lngSpan + slack, p.Lat() + radius + slack},
	)
	if err != nil {
		return 0
	}

	limit := radius * MetersPerDegree
	n := 0
	for _, s := range ix.tree.SearchIntersect(bb) {
		b := s.(item).b
		if WithinMeters(p, b.Coordinates, limit) {
			n++
		}
	}
	return n
}

// WithinMeters reports whether q lies within limit meters of p.
func WithinMeters(p, q orb.Point, limit float64) bool {
	dx := (q.Lon() - p.Lon()) * math.Cos(p.Lat()*math.Pi/180) * MetersPerDegree
	dy := (q.Lat() - p.Lat()) * MetersPerDegree
	return math.Hypot(dx, dy) <= limit
}

// Centroid returns the mean coordinate of the valid buildings.
func (ix *Index) Centroid() (orb.Point, bool) {
	if ix.Len() == 0 {
		return orb.Point{}, false
	}
	var sumLng, sumLat float64
	for _, b := range ix.valid {
		sumLng += b.Coordinates.Lon()
		sumLat += b.Coordinates.Lat()
	}
	n := float64(len(ix.valid))
	return orb.Point{sumLng / n, sumLat / n}, true
}
