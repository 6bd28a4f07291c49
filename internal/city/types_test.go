package city

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestHourOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ts   float64
		want int
	}{
		{"midnight", 0, 0},
		{"just before one", 3599, 0},
		{"noon", 12 * 3600, 12},
		{"last hour", 23*3600 + 59, 23},
		{"next day wraps", 86400 + 3*3600, 3},
		{"two days later", 2*86400 + 17*3600 + 10, 17},
		{"negative wraps into range", -1, 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HourOf(tt.ts))
		})
	}
}

func TestHistogram(t *testing.T) {
	t.Parallel()

	var h Histogram
	assert.Equal(t, 0, h.Max())
	assert.Equal(t, 0, h.Total())

	h[3] = 4
	h[9] = 7
	assert.Equal(t, 7, h.Max())
	assert.Equal(t, 11, h.Total())

	f := Flat()
	assert.Equal(t, 1, f.Max())
	assert.Equal(t, Hours, f.Total())
}

func TestAgentTripUsable(t *testing.T) {
	t.Parallel()

	p := orb.Point{0, 0}
	tests := []struct {
		name string
		trip AgentTrip
		want bool
	}{
		{"empty", AgentTrip{}, false},
		{"single point", AgentTrip{Path: []orb.Point{p}, Timestamps: []float64{0}}, false},
		{"two points", AgentTrip{Path: []orb.Point{p, p}, Timestamps: []float64{0, 100}}, true},
		{"length mismatch", AgentTrip{Path: []orb.Point{p, p, p}, Timestamps: []float64{0, 100}}, false},
		{"missing timestamps", AgentTrip{Path: []orb.Point{p, p}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trip.Usable())
		})
	}
}

func TestDatasetFilters(t *testing.T) {
	t.Parallel()

	ds := &Dataset{
		Buildings: []Building{
			{ID: "a", Coordinates: orb.Point{1, 2}},
			{ID: "b", Coordinates: orb.Point{math.NaN(), 2}},
			{ID: "c", Coordinates: orb.Point{1, math.Inf(1)}},
		},
		Trips: []AgentTrip{
			{AgentID: "1", Path: []orb.Point{{0, 0}, {1, 1}}, Timestamps: []float64{0, 1}},
			{AgentID: "2", Path: []orb.Point{{0, 0}}, Timestamps: []float64{0}},
		},
	}

	valid := ds.ValidBuildings()
	if assert.Len(t, valid, 1) {
		assert.Equal(t, "a", valid[0].ID)
	}
	usable := ds.UsableTrips()
	if assert.Len(t, usable, 1) {
		assert.Equal(t, "1", usable[0].AgentID)
	}

	var nilDS *Dataset
	assert.Empty(t, nilDS.ValidBuildings())
	assert.Empty(t, nilDS.UsableTrips())
}

func TestRouteKey(t *testing.T) {
	trip := AgentTrip{PlaceFrom: "home", PlaceTo: "work"}
	assert.Equal(t, "home-work", trip.RouteKey())
}
