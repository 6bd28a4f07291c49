package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"corners":         "corners",
		"city.corners":    "city.corners",
		" .sf corners.> ": "sf_corners._",
		"a..b":            "a._.b",
		"":                "_",
		"feeds/sf.top*":   "feeds_sf.top_",
	}
	for in, want := range cases {
		assert.Equal(t, want, Subject(in), "prefix %q", in)
	}
}
