package buildings

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"corner-ranker/internal/city"
)

func bld(lng, lat float64) city.Building {
	return city.Building{Coordinates: orb.Point{lng, lat}}
}

func TestCountNearby(t *testing.T) {
	t.Parallel()

	center := orb.Point{-122.4194, 37.7749}
	cosLat := math.Cos(center.Lat() * math.Pi / 180)
	ix := NewIndex([]city.Building{
		// same point
		bld(center.Lon(), center.Lat()),
		// inside, then outside, on latitude
		bld(center.Lon(), center.Lat()+0.0019),
		bld(center.Lon(), center.Lat()+0.0021),
		// inside, then outside, on longitude once scaled by cos(lat)
		bld(center.Lon()+0.0019/cosLat, center.Lat()),
		bld(center.Lon()+0.0021/cosLat, center.Lat()),
		// 0.0021 deg of longitude is well under 0.002 deg after scaling
		bld(center.Lon()+0.0021, center.Lat()),
		// invalid, never counted
		bld(math.NaN(), center.Lat()),
		// diagonal, about 212m
		bld(center.Lon()+0.0015, center.Lat()+0.0015),
		// far away
		bld(center.Lon()+0.01, center.Lat()+0.01),
	})

	assert.Equal(t, 8, ix.Len())
	assert.Equal(t, 5, ix.CountNearby(center, 0.002))
	assert.Equal(t, 1, ix.CountNearby(center, 0))
}

func TestCountNearbyMatchesBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	var all []city.Building
	for i := 0; i < 500; i++ {
		all = append(all, bld(-122.43+rng.Float64()*0.03, 37.76+rng.Float64()*0.03))
	}
	ix := NewIndex(all)

	for i := 0; i < 50; i++ {
		p := orb.Point{-122.43 + rng.Float64()*0.03, 37.76 + rng.Float64()*0.03}
		want := 0
		for _, b := range all {
			if WithinMeters(p, b.Coordinates, 0.002*MetersPerDegree) {
				want++
			}
		}
		assert.Equal(t, want, ix.CountNearby(p, 0.002), "query %v", p)
	}
}

func TestEmptyIndex(t *testing.T) {
	t.Parallel()

	ix := NewIndex(nil)
	assert.Zero(t, ix.CountNearby(orb.Point{0, 0}, 1))
	_, ok := ix.Centroid()
	assert.False(t, ok)

	ix = NewIndex([]city.Building{bld(math.NaN(), math.NaN())})
	_, ok = ix.Centroid()
	assert.False(t, ok)
}

func TestCentroid(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]city.Building{
		bld(1, 1),
		bld(3, 5),
		bld(math.Inf(1), 0),
	})
	c, ok := ix.Centroid()
	assert.True(t, ok)
	assert.InDelta(t, 2.0, c.Lon(), 1e-12)
	assert.InDelta(t, 3.0, c.Lat(), 1e-12)
}
