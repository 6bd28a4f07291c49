// Package corner builds the ranked pool of candidate street corners.
//
// Candidates come from an ordered list of strategies. Each strategy only
// runs while the pool is still below the minimum size, so later strategies
// act as fallbacks for sparse or degenerate datasets.
package corner

import (
	"log"
	"sort"

	"corner-ranker/internal/buildings"
	"corner-ranker/internal/city"
)

// Input is everything a strategy may draw on.
type Input struct {
	Hotspots  []city.Hotspot
	Buildings *buildings.Index
}

type Strategy interface {
	Tier() city.Tier
	Generate(in Input) []city.Candidate
}

type Generator struct {
	Strategies []Strategy
	MinPool    int
}

// DefaultGenerator returns hotspot, density and synthetic tiers in that
// order with a minimum pool of five.
func DefaultGenerator() Generator {
	return Generator{
		Strategies: []Strategy{
			HotspotTier{Limit: 20, Radius: 0.002},
			DensityTier{CellSize: 0.002, MinWindow: 3},
			SyntheticTier{Offset: 0.002},
		},
		MinPool: 5,
	}
}

// Generate runs the strategies in order until the pool reaches MinPool and
// returns the pool sorted by base score, highest first.
func (g Generator) Generate(in Input) []city.Candidate {
	var pool []city.Candidate
	for _, s := range g.Strategies {
		if len(pool) >= g.MinPool {
			break
		}
		got := s.Generate(in)
		log.Printf("corner tier %s produced %d candidates", s.Tier(), len(got))
		pool = append(pool, got...)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].BaseScore > pool[j].BaseScore })
	return pool
}
