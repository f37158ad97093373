package mains

import (
	"fmt"
	"strings"
)

// DefaultHarmonics is the number of hum partials removed by NotchFilter
const DefaultHarmonics = 3

// notchQ keeps each band narrow enough to leave hummed pitches nearby intact
const notchQ = 30

// NotchFilter returns an ffmpeg filter chain that removes mains hum at hz and
// its harmonics, e.g. "bandreject=f=50:width_type=q:w=30,bandreject=f=100:...".
// harmonics < 1 is treated as 1.
func NotchFilter(hz, harmonics int) string {
	if harmonics < 1 {
		harmonics = 1
	}
	bands := make([]string, 0, harmonics)
	for n := 1; n <= harmonics; n++ {
		bands = append(bands, fmt.Sprintf("bandreject=f=%d:width_type=q:w=%d", hz*n, notchQ))
	}
	return strings.Join(bands, ",")
}
