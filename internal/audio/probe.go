package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/tcolgate/mp3"
)

// ProbeDuration reads back the duration of an encoded file without decoding it
// to PCM. MP3 is measured frame by frame; WAV from its header.
func ProbeDuration(path string) (time.Duration, error) {
	switch FormatFromPath(path) {
	case FormatMP3:
		return mp3Duration(path)
	case FormatWAV:
		return wavDuration(path)
	default:
		return 0, fmt.Errorf("%w: cannot probe %s", ErrUnsupportedFormat, path)
	}
}

func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("read MP3 frame: %w", err)
		}
		total += frame.Duration()
	}
	return total, nil
}

func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("not a valid WAV file")
	}
	return dec.Duration()
}
