// Package grid buckets lng/lat points into fixed-size degree cells.
//
// Cells are degree rectangles, not equal-area; the service works over a
// small area at roughly constant latitude so no curvature correction is
// applied. Neighbourhood queries sum a 3x3 window of cells rather than
// searching a radius.
package grid

import (
	"math"

	"github.com/paulmach/orb"

	"corner-ranker/internal/city"
)

// Key identifies a cell by the floor-divided longitude and latitude.
type Key struct {
	X int
	Y int
}

type Cell struct {
	Key         Key
	Count       int
	Weight      float64        // sum of per-point weights passed to Add
	Coordinates orb.Point      // first point that landed in the cell
	Hourly      city.Histogram // filled by Visit
}

type Index struct {
	size  float64
	cells map[Key]*Cell
	order []Key
}

func New(cellSize float64) *Index {
	return &Index{
		size:  cellSize,
		cells: make(map[Key]*Cell),
	}
}

func (ix *Index) CellSize() float64 { return ix.size }

// KeyOf returns the cell key for p.
func (ix *Index) KeyOf(p orb.Point) Key {
	return Key{
		X: int(math.Floor(p.Lon() / ix.size)),
		Y: int(math.Floor(p.Lat() / ix.size)),
	}
}

// Add counts p in its cell and accumulates weight.
func (ix *Index) Add(p orb.Point, weight float64) *Cell {
	k := ix.KeyOf(p)
	c, ok := ix.cells[k]
	if !ok {
		c = &Cell{Key: k, Coordinates: p}
		ix.cells[k] = c
		ix.order = append(ix.order, k)
	}
	c.Count++
	c.Weight += weight
	return c
}

// Visit counts p in its cell and in the hour bucket of its histogram.
func (ix *Index) Visit(p orb.Point, hour int) *Cell {
	c := ix.Add(p, 0)
	c.Hourly[hour]++
	return c
}

func (ix *Index) Cell(k Key) (*Cell, bool) {
	c, ok := ix.cells[k]
	return c, ok
}

// Cells returns occupied cells in first-touch order.
func (ix *Index) Cells() []*Cell {
	out := make([]*Cell, 0, len(ix.order))
	for _, k := range ix.order {
		out = append(out, ix.cells[k])
	}
	return out
}

func (ix *Index) Len() int { return len(ix.cells) }

// Window sums count and weight over k and its eight neighbours.
func (ix *Index) Window(k Key) (count int, weight float64) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if c, ok := ix.cells[Key{X: k.X + dx, Y: k.Y + dy}]; ok {
				count += c.Count
				weight += c.Weight
			}
		}
	}
	return count, weight
}

// Center returns the midpoint of cell k.
func (ix *Index) Center(k Key) orb.Point {
	return orb.Point{
		(float64(k.X) + 0.5) * ix.size,
		(float64(k.Y) + 0.5) * ix.size,
	}
}
