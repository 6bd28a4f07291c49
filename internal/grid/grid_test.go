package grid

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOf(t *testing.T) {
	t.Parallel()

	ix := New(0.001)
	tests := []struct {
		name string
		p    orb.Point
		want Key
	}{
		{"origin", orb.Point{0, 0}, Key{0, 0}},
		{"positive", orb.Point{0.0025, 0.0011}, Key{2, 1}},
		{"negative floors down", orb.Point{-0.0001, -0.0015}, Key{-1, -2}},
		{"san francisco", orb.Point{-122.4194, 37.7749}, Key{-122420, 37774}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.KeyOf(tt.p))
		})
	}
}

func TestAddKeepsFirstPoint(t *testing.T) {
	t.Parallel()

	ix := New(0.01)
	first := orb.Point{0.001, 0.001}
	ix.Add(first, 1.5)
	c := ix.Add(orb.Point{0.009, 0.009}, 2)

	assert.Equal(t, 2, c.Count)
	assert.InDelta(t, 3.5, c.Weight, 1e-9)
	assert.Equal(t, first, c.Coordinates)
	assert.Equal(t, 1, ix.Len())
}

func TestVisitFillsHistogram(t *testing.T) {
	t.Parallel()

	ix := New(0.001)
	p := orb.Point{0.0005, 0.0005}
	ix.Visit(p, 8)
	ix.Visit(p, 8)
	c := ix.Visit(p, 23)

	assert.Equal(t, 3, c.Count)
	assert.Equal(t, 2, c.Hourly[8])
	assert.Equal(t, 1, c.Hourly[23])
	assert.Equal(t, 3, c.Hourly.Total())
}

func TestCellsOrder(t *testing.T) {
	t.Parallel()

	ix := New(1)
	ix.Add(orb.Point{5.5, 5.5}, 0)
	ix.Add(orb.Point{1.5, 1.5}, 0)
	ix.Add(orb.Point{5.1, 5.9}, 0)
	ix.Add(orb.Point{3.5, 3.5}, 0)

	cells := ix.Cells()
	require.Len(t, cells, 3)
	assert.Equal(t, Key{5, 5}, cells[0].Key)
	assert.Equal(t, Key{1, 1}, cells[1].Key)
	assert.Equal(t, Key{3, 3}, cells[2].Key)
}

func TestWindow(t *testing.T) {
	t.Parallel()

	ix := New(1)
	// centre cell (0,0) with two points, each neighbour ring cell one point,
	// and one point two cells away that must not be counted.
	ix.Add(orb.Point{0.5, 0.5}, 1)
	ix.Add(orb.Point{0.6, 0.6}, 1)
	ix.Add(orb.Point{1.5, 0.5}, 2)
	ix.Add(orb.Point{-0.5, -0.5}, 3)
	ix.Add(orb.Point{2.5, 0.5}, 100)

	count, weight := ix.Window(Key{0, 0})
	assert.Equal(t, 4, count)
	assert.InDelta(t, 7.0, weight, 1e-9)

	count, weight = ix.Window(Key{10, 10})
	assert.Zero(t, count)
	assert.Zero(t, weight)

	_, ok := ix.Cell(Key{10, 10})
	assert.False(t, ok)
}

func TestCenter(t *testing.T) {
	t.Parallel()

	ix := New(0.002)
	c := ix.Center(Key{X: -61210, Y: 18887})
	assert.InDelta(t, -122.419, c.Lon(), 1e-9)
	assert.InDelta(t, 37.775, c.Lat(), 1e-9)
}
