// Package processor implements the clip cleaning pipeline: silence trimming,
// duration validation, per-group duration alignment and batch dispatch.
package processor

import (
	"math"
	"time"

	"github.com/linuxmatters/humprep/internal/audio"
)

// Silence detection defaults
const (
	DefaultSilenceThresholdDB = -40.0
	DefaultSilenceWindow      = 10 * time.Millisecond
)

// IntervalDetector finds the part of a buffer that carries signal
type IntervalDetector interface {
	Detect(buf *audio.Buffer) audio.Interval
}

// SilenceDetector measures RMS level over fixed windows and keeps the span from
// the first to the last window at or above the threshold.
type SilenceDetector struct {
	ThresholdDB float64       // window RMS level in dBFS that counts as signal
	Window      time.Duration // analysis window length
}

// NewSilenceDetector returns a detector using the default threshold and window
func NewSilenceDetector() SilenceDetector {
	return SilenceDetector{
		ThresholdDB: DefaultSilenceThresholdDB,
		Window:      DefaultSilenceWindow,
	}
}

// Detect returns the non-silent interval of buf.
// Buffers that are empty or entirely below threshold yield the zero Interval.
func (d SilenceDetector) Detect(buf *audio.Buffer) audio.Interval {
	total := buf.Frames()
	if total == 0 {
		return audio.Interval{}
	}

	window := audio.DurationToFrames(d.Window, buf.SampleRate)
	if window < 1 {
		window = 1
	}

	// Compare mean square against the squared linear threshold to skip a sqrt per window
	threshold := math.Pow(10, d.ThresholdDB/20)
	thresholdSq := threshold * threshold

	first, last := -1, -1
	for start := 0; start < total; start += window {
		end := min(start+window, total)
		if meanSquare(buf, start, end) >= thresholdSq {
			if first < 0 {
				first = start
			}
			last = end
		}
	}

	if first < 0 {
		return audio.Interval{}
	}

	return audio.Interval{
		Start: audio.FramesToDuration(first, buf.SampleRate),
		End:   audio.FramesToDuration(last, buf.SampleRate),
	}
}

// meanSquare averages the squared samples of frames [start, end) across all channels
func meanSquare(buf *audio.Buffer, start, end int) float64 {
	samples := buf.Samples[start*buf.Channels : end*buf.Channels]
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}
