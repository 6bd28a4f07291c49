package playback

import (
	"sort"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"

	"corner-ranker/internal/city"
)

// EarthRadiusMeters is the mean earth radius.
const EarthRadiusMeters = 6371000.0

type Route struct {
	Key        string   `json:"key"`
	PlaceFrom  string   `json:"placeFrom"`
	PlaceTo    string   `json:"placeTo"`
	Count      int      `json:"count"`
	Agents     []string `json:"agents"`
	Popularity float64  `json:"popularity"` // count / busiest route count
	Color      RGB      `json:"color"`
	MeanLength float64  `json:"meanLengthMeters"`
}

// Routes groups usable trips by origin/destination, busiest first. Ties
// keep first-seen order.
func Routes(trips []city.AgentTrip) []Route {
	byKey := map[string]*Route{}
	var order []string
	total := map[string]float64{}

	for _, t := range trips {
		if !t.Usable() {
			continue
		}
		k := t.RouteKey()
		r, ok := byKey[k]
		if !ok {
			r = &Route{Key: k, PlaceFrom: t.PlaceFrom, PlaceTo: t.PlaceTo}
			byKey[k] = r
			order = append(order, k)
		}
		r.Count++
		r.Agents = append(r.Agents, t.AgentID)
		total[k] += PathLength(t.Path)
	}

	maxCount := 0
	for _, r := range byKey {
		if r.Count > maxCount {
			maxCount = r.Count
		}
	}

	out := make([]Route, 0, len(order))
	for _, k := range order {
		r := byKey[k]
		r.Popularity = float64(r.Count) / float64(maxCount)
		r.Color = HeatColor(r.Popularity)
		r.MeanLength = total[k] / float64(r.Count)
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b orb.Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	p2 := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PathLength sums the great-circle hops of path.
func PathLength(path []orb.Point) float64 {
	var d float64
	for i := 1; i < len(path); i++ {
		d += Distance(path[i-1], path[i])
	}
	return d
}
