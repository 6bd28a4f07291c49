package scoring

import (
	"sort"

	"corner-ranker/internal/city"
)

// Rescorer applies a schedule to a candidate pool.
type Rescorer struct {
	Schedule Schedule
}

func NewRescorer() Rescorer {
	return Rescorer{Schedule: DefaultSchedule()}
}

// Rescore annotates every candidate with its adjusted score at ts:
//
//	base * phase multiplier * (1 + h[hour]/max(h))
//
// max(h) is floored at 1. The pool is not modified and the result keeps
// pool order.
func (r Rescorer) Rescore(pool []city.Candidate, ts float64) []city.ScoredCandidate {
	hour := city.HourOf(ts)
	mult := r.Schedule.At(hour).Multiplier

	out := make([]city.ScoredCandidate, 0, len(pool))
	for _, c := range pool {
		peak := c.Hourly.Max()
		if peak < 1 {
			peak = 1
		}
		boost := 1 + float64(c.Hourly[hour])/float64(peak)
		out = append(out, city.ScoredCandidate{
			ID:            c.ID,
			Tier:          c.Tier,
			Coordinates:   c.Coordinates,
			BaseScore:     c.BaseScore,
			AdjustedScore: c.BaseScore * mult * boost,
			BuildingCount: c.BuildingCount,
		})
	}
	return out
}

// Top keeps candidates with a positive adjusted score, orders them best
// first and ranks the first k from 1. Fewer than k results is normal.
func Top(scored []city.ScoredCandidate, k int) []city.ScoredCandidate {
	out := make([]city.ScoredCandidate, 0, len(scored))
	for _, s := range scored {
		if s.AdjustedScore > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AdjustedScore > out[j].AdjustedScore })
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
