// Package playback derives the looping trip-animation state from a dataset:
// the time window, per-route popularity and the time-dependent styling hints
// handed to the renderer.
package playback

import (
	"math"

	"corner-ranker/internal/city"
)

// Window is the span of trip timestamps the simulated clock loops over.
type Window struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Loop float64 `json:"loopLength"`
}

// Empty reports whether the window has no duration to play.
func (w Window) Empty() bool { return w.Loop <= 0 }

// At maps an offset into the loop to an absolute timestamp.
func (w Window) At(offset float64) float64 {
	if w.Empty() {
		return w.Min
	}
	off := math.Mod(offset, w.Loop)
	if off < 0 {
		off += w.Loop
	}
	return w.Min + off
}

// WindowOf spans every timestamp of the usable trips. No usable trip gives
// the zero window.
func WindowOf(trips []city.AgentTrip) Window {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range trips {
		if !t.Usable() {
			continue
		}
		for _, ts := range t.Timestamps {
			lo = math.Min(lo, ts)
			hi = math.Max(hi, ts)
		}
	}
	if math.IsInf(lo, 1) {
		return Window{}
	}
	return Window{Min: lo, Max: hi, Loop: hi - lo}
}
