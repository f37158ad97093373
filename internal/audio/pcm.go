package audio

import (
	"encoding/binary"
	"math"

	"github.com/go-audio/audio"
)

// SamplesToBytes converts samples in [-1, 1] to little-endian signed 16-bit PCM
func SamplesToBytes(samples []float64) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(toInt16(s)))
	}
	return buf
}

// BytesToSamples converts little-endian signed 16-bit PCM to samples in [-1, 1].
// A trailing odd byte is ignored.
func BytesToSamples(pcm []byte) []float64 {
	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float64(v) / 32768.0
	}
	return samples
}

func toInt16(s float64) int16 {
	return int16(math.Round(clip(s) * math.MaxInt16))
}

// toIntBuffer quantises a Buffer for the go-audio WAV encoder
func toIntBuffer(b *Buffer, bitDepth int) *audio.IntBuffer {
	maxVal := float64(int64(1)<<uint(bitDepth-1) - 1)
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(math.Round(clip(s) * maxVal))
	}
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: b.Channels,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}
