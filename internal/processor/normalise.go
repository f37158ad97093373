package processor

import (
	"math"

	"github.com/linuxmatters/humprep/internal/audio"
)

// DefaultHeadroomDB leaves 0.1 dB between the loudest sample and full scale
const DefaultHeadroomDB = 0.1

// Normaliser adjusts the loudness of a cleaned buffer before encoding
type Normaliser interface {
	Normalise(buf *audio.Buffer) *audio.Buffer
}

// PeakNormaliser applies a single gain so the loudest sample sits HeadroomDB below
// full scale. Silent buffers are returned unchanged.
type PeakNormaliser struct {
	HeadroomDB float64
}

// NewPeakNormaliser uses DefaultHeadroomDB
func NewPeakNormaliser() PeakNormaliser {
	return PeakNormaliser{HeadroomDB: DefaultHeadroomDB}
}

// Normalise returns a gain-adjusted copy of buf
func (n PeakNormaliser) Normalise(buf *audio.Buffer) *audio.Buffer {
	peak := buf.Peak()
	if peak == 0 {
		return buf.Scale(1)
	}
	return buf.Scale(n.Gain(peak))
}

// Gain is the linear factor that moves peak to the target level
func (n PeakNormaliser) Gain(peak float64) float64 {
	if peak <= 0 {
		return 1
	}
	target := dbToLinear(-n.HeadroomDB)
	return target / peak
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func linearToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
