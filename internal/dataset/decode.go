package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"corner-ranker/internal/city"
)

// DecodeBuildings accepts a GeoJSON FeatureCollection or a plain JSON array
// of building records.
func DecodeBuildings(data []byte) ([]city.Building, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty buildings payload")
	}
	if data[0] == '[' {
		return decodeBuildingRecords(data)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode buildings geojson: %w", err)
	}
	out := make([]city.Building, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		var p orb.Point
		if pt, ok := f.Geometry.(orb.Point); ok {
			p = pt
		} else {
			p = f.Geometry.Bound().Center()
		}
		out = append(out, city.Building{
			ID:          propString(f.Properties, "building_id", "id"),
			Coordinates: p,
			MaxPeople:   maxPeople(f.Properties.MustFloat64("max_people", 0), propFloats(f.Properties["people"])),
		})
	}
	return out, nil
}

type buildingRecord struct {
	BuildingID  flexString `json:"building_id"`
	Coordinates []float64  `json:"coordinates"`
	Lng         *float64   `json:"lng"`
	Lat         *float64   `json:"lat"`
	MaxPeople   float64    `json:"max_people"`
	People      []*float64 `json:"people"`
}

func decodeBuildingRecords(data []byte) ([]city.Building, error) {
	var recs []buildingRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode buildings: %w", err)
	}
	out := make([]city.Building, 0, len(recs))
	for _, r := range recs {
		var p orb.Point
		switch {
		case len(r.Coordinates) >= 2:
			p = orb.Point{r.Coordinates[0], r.Coordinates[1]}
		case r.Lng != nil && r.Lat != nil:
			p = orb.Point{*r.Lng, *r.Lat}
		default:
			p = orb.Point{math.NaN(), math.NaN()}
		}
		var people []float64
		for _, v := range r.People {
			if v != nil {
				people = append(people, *v)
			}
		}
		out = append(out, city.Building{
			ID:          string(r.BuildingID),
			Coordinates: p,
			MaxPeople:   maxPeople(r.MaxPeople, people),
		})
	}
	return out, nil
}

// maxPeople prefers the declared maximum and otherwise takes the peak of the
// finite occupancy samples.
func maxPeople(declared float64, people []float64) float64 {
	if declared != 0 && !math.IsNaN(declared) {
		return declared
	}
	peak := math.Inf(-1)
	for _, v := range people {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > peak {
			peak = v
		}
	}
	if math.IsInf(peak, -1) {
		return 0
	}
	return peak
}

func propString(p geojson.Properties, keys ...string) string {
	for _, k := range keys {
		switch v := p[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func propFloats(v interface{}) []float64 {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, x := range arr {
		if f, ok := x.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

type tripRecord struct {
	AgentID    flexString  `json:"agent_id"`
	Path       [][]float64 `json:"path"`
	Timestamps []*float64  `json:"timestamps"`
	PlaceFrom  flexString  `json:"place_from"`
	PlaceTo    flexString  `json:"place_to"`
}

// DecodeTrips decodes a JSON array of agent trips. Null timestamps read as
// zero; a trip with a waypoint of fewer than two ordinates is dropped.
func DecodeTrips(data []byte) ([]city.AgentTrip, error) {
	var recs []tripRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode trips: %w", err)
	}
	out := make([]city.AgentTrip, 0, len(recs))
next:
	for _, r := range recs {
		path := make([]orb.Point, 0, len(r.Path))
		for _, c := range r.Path {
			if len(c) < 2 {
				continue next
			}
			path = append(path, orb.Point{c[0], c[1]})
		}
		ts := make([]float64, len(r.Timestamps))
		for i, v := range r.Timestamps {
			if v != nil {
				ts[i] = *v
			}
		}
		out = append(out, city.AgentTrip{
			AgentID:    string(r.AgentID),
			Path:       path,
			Timestamps: ts,
			PlaceFrom:  string(r.PlaceFrom),
			PlaceTo:    string(r.PlaceTo),
		})
	}
	return out, nil
}

// flexString accepts a JSON string, number or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*s = flexString(n.String())
	}
	return nil
}
