package hotspot

import (
	"fmt"
	"sort"

	"corner-ranker/internal/city"
	"corner-ranker/internal/grid"
)

type Options struct {
	CellSize float64 // degrees; 0.001 is roughly 111m
	MinCount int     // noise floor for a cell to count as a hotspot
}

func DefaultOptions() Options {
	return Options{CellSize: 0.001, MinCount: 3}
}

// Extract aggregates en-route waypoints of usable trips into grid cells and
// returns the cells that reach the noise floor, heaviest first.
//
// The first waypoint of each trip is its origin and is never counted.
// Unusable trips (fewer than two waypoints or a path/timestamp length
// mismatch) are skipped.
func Extract(trips []city.AgentTrip, opts Options) []city.Hotspot {
	if opts.CellSize <= 0 {
		opts.CellSize = DefaultOptions().CellSize
	}
	ix := grid.New(opts.CellSize)
	for _, t := range trips {
		if !t.Usable() {
			continue
		}
		for i := 1; i < len(t.Path); i++ {
			ix.Visit(t.Path[i], city.HourOf(t.Timestamps[i]))
		}
	}

	var out []city.Hotspot
	for _, c := range ix.Cells() {
		if c.Count < opts.MinCount {
			continue
		}
		out = append(out, city.Hotspot{
			Coordinates: c.Coordinates,
			Weight:      c.Count,
			Hourly:      c.Hourly,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	for i := range out {
		out[i].ID = fmt.Sprintf("hs_%d", i)
	}
	return out
}
