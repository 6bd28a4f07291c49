package playback

import (
	"fmt"
	"math"

	"corner-ranker/internal/city"
)

// RGB is a colour with 0-255 channels.
type RGB [3]uint8

// HeatColor maps v in [0,1] onto blue, cyan, green, yellow, red in four
// equal linear segments. Values outside the range clamp to the ends.
func HeatColor(v float64) RGB {
	switch {
	case math.IsNaN(v) || v <= 0:
		return RGB{0, 0, 255}
	case v >= 1:
		return RGB{255, 0, 0}
	case v < 0.25:
		return RGB{0, channel(v * 4), 255}
	case v < 0.5:
		return RGB{0, 255, channel(1 - (v-0.25)*4)}
	case v < 0.75:
		return RGB{channel((v - 0.5) * 4), 255, 0}
	default:
		return RGB{255, channel(1 - (v-0.75)*4), 0}
	}
}

func channel(t float64) uint8 {
	return uint8(math.Floor(255 * t))
}

// Daytime hours, inclusive.
const (
	dayStart = 6
	dayEnd   = 22
)

// PathOpacity is the trail opacity for the hour of ts.
func PathOpacity(ts float64) float64 {
	h := city.HourOf(ts)
	if h >= dayStart && h <= dayEnd {
		return 0.7
	}
	return 0.3
}

// HotspotOpacity is drawn slightly stronger than the trails.
func HotspotOpacity(ts float64) float64 {
	return PathOpacity(ts) + 0.1
}

// FormatClock renders seconds as HH:MM. Hours are not wrapped at 24.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	s := int64(seconds)
	return fmt.Sprintf("%02d:%02d", s/3600, (s%3600)/60)
}
