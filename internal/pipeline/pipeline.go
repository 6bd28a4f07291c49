// Package pipeline ties the scoring stages together. A Pipeline is built
// once per dataset and is immutable afterwards; queries only rescore.
package pipeline

import (
	"log"
	"time"

	"github.com/google/uuid"

	"corner-ranker/internal/buildings"
	"corner-ranker/internal/city"
	"corner-ranker/internal/corner"
	"corner-ranker/internal/hotspot"
	"corner-ranker/internal/playback"
	"corner-ranker/internal/scoring"
)

type Options struct {
	Hotspot   hotspot.Options
	Generator corner.Generator
	Rescorer  scoring.Rescorer
	TopK      int
}

func DefaultOptions() Options {
	return Options{
		Hotspot:   hotspot.DefaultOptions(),
		Generator: corner.DefaultGenerator(),
		Rescorer:  scoring.NewRescorer(),
		TopK:      5,
	}
}

type Pipeline struct {
	ID        string
	BuiltAt   time.Time
	Buildings int // valid buildings
	Trips     int // usable trips
	Hotspots  []city.Hotspot
	Pool      []city.Candidate
	Window    playback.Window
	Routes    []playback.Route

	rescorer scoring.Rescorer
	topK     int
}

// Result is the ranking for one query time.
type Result struct {
	Time           float64                `json:"time"`
	Hour           int                    `json:"hour"`
	Phase          string                 `json:"phase"`
	Multiplier     float64                `json:"multiplier"`
	Clock          string                 `json:"clock"`
	PathOpacity    float64                `json:"pathOpacity"`
	HotspotOpacity float64                `json:"hotspotOpacity"`
	Top            []city.ScoredCandidate `json:"top"`
}

// Build runs indexing, hotspot extraction and candidate generation over ds.
// A nil or empty dataset yields an empty pool.
func Build(ds *city.Dataset, opts Options) *Pipeline {
	trips := ds.UsableTrips()
	ix := buildings.NewIndex(ds.ValidBuildings())

	hs := hotspot.Extract(trips, opts.Hotspot)
	pool := opts.Generator.Generate(corner.Input{Hotspots: hs, Buildings: ix})

	p := &Pipeline{
		ID:        uuid.NewString(),
		BuiltAt:   time.Now().UTC(),
		Buildings: ix.Len(),
		Trips:     len(trips),
		Hotspots:  hs,
		Pool:      pool,
		Window:    playback.WindowOf(trips),
		Routes:    playback.Routes(trips),
		rescorer:  opts.Rescorer,
		topK:      opts.TopK,
	}
	log.Printf("pipeline %s built: buildings=%d trips=%d hotspots=%d candidates=%d",
		p.ID, p.Buildings, p.Trips, len(hs), len(pool))
	return p
}

// Query rescores the pool at ts and selects the top candidates.
func (p *Pipeline) Query(ts float64) Result {
	hour := city.HourOf(ts)
	phase := p.rescorer.Schedule.At(hour)
	return Result{
		Time:           ts,
		Hour:           hour,
		Phase:          phase.Name,
		Multiplier:     phase.Multiplier,
		Clock:          playback.FormatClock(ts),
		PathOpacity:    playback.PathOpacity(ts),
		HotspotOpacity: playback.HotspotOpacity(ts),
		Top:            scoring.Top(p.rescorer.Rescore(p.Pool, ts), p.topK),
	}
}
