package corner

import (
	"fmt"

	"github.com/paulmach/orb"

	"corner-ranker/internal/city"
	"corner-ranker/internal/grid"
)

// HotspotTier scores the heaviest hotspots by traffic and surrounding
// buildings: base = weight*5 + buildings within Radius degrees.
type HotspotTier struct {
	Limit  int
	Radius float64
}

func (HotspotTier) Tier() city.Tier { return city.TierHotspot }

func (s HotspotTier) Generate(in Input) []city.Candidate {
	hs := in.Hotspots
	if s.Limit > 0 && len(hs) > s.Limit {
		hs = hs[:s.Limit]
	}
	out := make([]city.Candidate, 0, len(hs))
	for i, h := range hs {
		nearby := in.Buildings.CountNearby(h.Coordinates, s.Radius)
		out = append(out, city.Candidate{
			ID:            fmt.Sprintf("hotspot_corner_%d", i),
			Tier:          city.TierHotspot,
			Coordinates:   h.Coordinates,
			BaseScore:     float64(h.Weight*5 + nearby),
			BuildingCount: nearby,
			Hourly:        h.Hourly,
		})
	}
	return out
}

// DensityTier emits the midpoints of building-dense cells. Density is
// treated as time-invariant, so histograms are flat.
type DensityTier struct {
	CellSize  float64
	MinWindow int
}

func (DensityTier) Tier() city.Tier { return city.TierDensity }

func (s DensityTier) Generate(in Input) []city.Candidate {
	ix := grid.New(s.CellSize)
	for _, b := range in.Buildings.Valid() {
		ix.Add(b.Coordinates, b.MaxPeople/100)
	}

	var out []city.Candidate
	for _, c := range ix.Cells() {
		count, people := ix.Window(c.Key)
		if count < s.MinWindow {
			continue
		}
		out = append(out, city.Candidate{
			ID:            fmt.Sprintf("corner_%d_%d", c.Key.X, c.Key.Y),
			Tier:          city.TierDensity,
			Coordinates:   ix.Center(c.Key),
			BaseScore:     float64(count) + people,
			BuildingCount: count,
			Hourly:        city.Flat(),
		})
	}
	return out
}

// syntheticOffsets are the fixed placements around the centroid, best first.
var syntheticOffsets = [][2]float64{{0, 0}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}

// SyntheticTier places five corners around the building centroid so the
// pool is never short while at least one valid building exists.
type SyntheticTier struct {
	Offset float64
}

func (SyntheticTier) Tier() city.Tier { return city.TierSynthetic }

func (s SyntheticTier) Generate(in Input) []city.Candidate {
	center, ok := in.Buildings.Centroid()
	if !ok {
		return nil
	}
	out := make([]city.Candidate, 0, len(syntheticOffsets))
	for i, off := range syntheticOffsets {
		out = append(out, city.Candidate{
			ID:   fmt.Sprintf("synthetic_corner_%d", i),
			Tier: city.TierSynthetic,
			Coordinates: orb.Point{
				center.Lon() + off[0]*s.Offset,
				center.Lat() + off[1]*s.Offset,
			},
			BaseScore:     float64(100 - i*10),
			BuildingCount: 10 - i,
			Hourly:        city.Flat(),
		})
	}
	return out
}
