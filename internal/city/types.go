package city

import (
	"math"

	"github.com/paulmach/orb"
)

// Hours is the number of hour-of-day buckets in a Histogram.
const Hours = 24

// Histogram counts visits per hour of day.
type Histogram [Hours]int

// Flat returns a histogram with every bucket set to one (no time preference).
func Flat() Histogram {
	var h Histogram
	for i := range h {
		h[i] = 1
	}
	return h
}

// Max returns the largest bucket value.
func (h Histogram) Max() int {
	m := 0
	for _, v := range h {
		if v > m {
			m = v
		}
	}
	return m
}

// Total returns the sum over all buckets.
func (h Histogram) Total() int {
	n := 0
	for _, v := range h {
		n += v
	}
	return n
}

// HourOf maps a timestamp in seconds to its hour-of-day bucket.
// Only the hour is wrapped; ts itself may exceed a day or be negative.
func HourOf(ts float64) int {
	h := int(math.Floor(ts/3600)) % Hours
	if h < 0 {
		h += Hours
	}
	return h
}

type Building struct {
	ID          string
	Coordinates orb.Point // lng, lat
	MaxPeople   float64
}

// Valid reports whether both coordinates are finite.
func (b Building) Valid() bool {
	return finite(b.Coordinates.Lon()) && finite(b.Coordinates.Lat())
}

type AgentTrip struct {
	AgentID    string
	Path       []orb.Point
	Timestamps []float64 // seconds, same length as Path
	PlaceFrom  string
	PlaceTo    string
}

// Usable reports whether the trip can take part in hotspot extraction:
// at least two waypoints and one timestamp per waypoint.
func (t AgentTrip) Usable() bool {
	return len(t.Path) >= 2 && len(t.Path) == len(t.Timestamps)
}

// RouteKey identifies the origin/destination pair of the trip.
func (t AgentTrip) RouteKey() string {
	return t.PlaceFrom + "-" + t.PlaceTo
}

type Dataset struct {
	Buildings []Building
	Trips     []AgentTrip
}

// ValidBuildings returns the buildings with finite coordinates.
func (d *Dataset) ValidBuildings() []Building {
	if d == nil {
		return nil
	}
	out := make([]Building, 0, len(d.Buildings))
	for _, b := range d.Buildings {
		if b.Valid() {
			out = append(out, b)
		}
	}
	return out
}

// UsableTrips returns the trips that pass the validity filter.
func (d *Dataset) UsableTrips() []AgentTrip {
	if d == nil {
		return nil
	}
	out := make([]AgentTrip, 0, len(d.Trips))
	for _, t := range d.Trips {
		if t.Usable() {
			out = append(out, t)
		}
	}
	return out
}

type Hotspot struct {
	ID          string    `json:"id"`
	Coordinates orb.Point `json:"coordinates"`
	Weight      int       `json:"weight"`
	Hourly      Histogram `json:"hourlyHistogram"`
}

// Tier names the generator strategy that produced a candidate.
type Tier string

const (
	TierHotspot   Tier = "hotspot"
	TierDensity   Tier = "density"
	TierSynthetic Tier = "synthetic"
)

// Candidate is a street corner eligible for ranking. Immutable once pooled.
type Candidate struct {
	ID            string    `json:"id"`
	Tier          Tier      `json:"tier"`
	Coordinates   orb.Point `json:"coordinates"`
	BaseScore     float64   `json:"baseScore"`
	BuildingCount int       `json:"buildingCount"`
	Hourly        Histogram `json:"hourlyHistogram"`
}

// ScoredCandidate is a candidate annotated for a single query time.
type ScoredCandidate struct {
	ID            string    `json:"id"`
	Tier          Tier      `json:"tier"`
	Coordinates   orb.Point `json:"coordinates"`
	BaseScore     float64   `json:"baseScore"`
	AdjustedScore float64   `json:"adjustedScore"`
	BuildingCount int       `json:"buildingCount"`
	Rank          int       `json:"rank,omitempty"` // 1-based, top-K only
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
