package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxmatters/humprep/internal/audio"
)

// ClipDescriptor identifies one file to clean. It is a value; copy freely.
type ClipDescriptor struct {
	Source      string
	Destination string
	Type        ClipType
	MaxDuration time.Duration // per-clip cap; 0 means none
	Format      audio.Format  // source encoding
}

// Status is the result class of cleaning one clip
type Status int

const (
	StatusCleaned Status = iota
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusCleaned:
		return "cleaned"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome describes a clip that was processed without error.
// A rejected clip has written nothing.
type Outcome struct {
	Status   Status
	Path     string        // destination written, empty when rejected
	Trimmed  time.Duration // after trimming and truncation, before any fallback
	Duration time.Duration // of the buffer handed to the encoder
	Probed   time.Duration // read back from the written file; 0 when unavailable
	Fallback bool          // the untrimmed source was kept because trimming left too little
	Reason   string        // validation failure, set for rejections and fallbacks
	GainDB   float64       // normalisation gain applied
}

// SourceDecoder decodes a source file given its declared format.
// *audio.Decoders satisfies it.
type SourceDecoder interface {
	Decode(ctx context.Context, path string, f audio.Format) (*audio.Buffer, error)
}

// Cleaner runs one clip through decode, trim, truncate, validate, normalise and encode
type Cleaner struct {
	Decoder    SourceDecoder
	Detector   IntervalDetector
	Validator  *Validator
	Normaliser Normaliser
	Encoder    audio.Encoder
	Probe      func(path string) (time.Duration, error) // nil skips the read-back
	Logger     *slog.Logger
}

// NewCleaner wires dec and enc with the default detector, validator and normaliser
func NewCleaner(dec SourceDecoder, enc audio.Encoder, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		Decoder:    dec,
		Detector:   NewSilenceDetector(),
		Validator:  NewValidator(),
		Normaliser: NewPeakNormaliser(),
		Encoder:    enc,
		Probe:      audio.ProbeDuration,
		Logger:     logger,
	}
}

// Measure decodes the clip and returns its trimmed duration without writing anything
func (c *Cleaner) Measure(ctx context.Context, desc ClipDescriptor) (time.Duration, error) {
	buf, err := c.decode(ctx, desc)
	if err != nil {
		return 0, err
	}
	return buf.Slice(c.Detector.Detect(buf)).Duration(), nil
}

// Clean processes desc and writes the result to desc.Destination.
//
// target caps the trimmed length of truncatable clip types; 0 means no cap. The
// descriptor's own MaxDuration applies too, and the smaller non-zero value wins.
//
// When the trimmed clip fails validation, strict mode returns a StatusRejected
// outcome and writes nothing. Non-strict mode keeps the original untrimmed buffer.
//
// Errors are *audio.DecodeError or *audio.EncodeError; a rejection is not an error.
func (c *Cleaner) Clean(ctx context.Context, desc ClipDescriptor, target time.Duration, strict bool) (Outcome, error) {
	policy, ok := c.Validator.Policy(desc.Type)
	if !ok {
		return Outcome{}, fmt.Errorf("clean %s: %s %q", desc.Source, ReasonUnknownType, desc.Type)
	}

	buf, err := c.decode(ctx, desc)
	if err != nil {
		return Outcome{}, err
	}

	trimmed := buf.Slice(c.Detector.Detect(buf))
	if policy.Truncatable {
		if limit := capDuration(target, desc.MaxDuration); limit > 0 {
			trimmed = trimmed.Truncate(limit)
		}
	}

	outcome := Outcome{Trimmed: trimmed.Duration()}
	keep := trimmed

	if valid, reason := c.Validator.Check(trimmed, desc.Type); !valid {
		outcome.Reason = reason
		if strict {
			outcome.Status = StatusRejected
			c.Logger.Debug("clip rejected",
				slog.String("source", desc.Source),
				slog.String("type", string(desc.Type)),
				slog.String("reason", reason),
				slog.Duration("trimmed", outcome.Trimmed))
			return outcome, nil
		}
		keep = buf
		outcome.Fallback = true
	}

	if peak := keep.Peak(); peak > 0 {
		outcome.GainDB = linearToDB(c.gainFor(peak))
	}
	normalised := c.Normaliser.Normalise(keep)

	if err := c.Encoder.Encode(ctx, normalised, desc.Destination); err != nil {
		var encErr *audio.EncodeError
		if !errors.As(err, &encErr) {
			err = &audio.EncodeError{Path: desc.Destination, Err: err}
		}
		return Outcome{}, err
	}

	outcome.Status = StatusCleaned
	outcome.Path = desc.Destination
	outcome.Duration = normalised.Duration()

	if c.Probe != nil {
		probed, err := c.Probe(desc.Destination)
		if err != nil {
			c.Logger.Debug("could not read back output duration",
				slog.String("path", desc.Destination),
				slog.Any("error", err))
		} else {
			outcome.Probed = probed
		}
	}

	return outcome, nil
}

// decode wraps foreign decoder errors so callers can always errors.As a DecodeError
func (c *Cleaner) decode(ctx context.Context, desc ClipDescriptor) (*audio.Buffer, error) {
	buf, err := c.Decoder.Decode(ctx, desc.Source, desc.Format)
	if err != nil {
		var decErr *audio.DecodeError
		if !errors.As(err, &decErr) {
			err = &audio.DecodeError{Path: desc.Source, Err: err}
		}
		return nil, err
	}
	return buf, nil
}

// gainFor reports the gain a PeakNormaliser would apply; other normalisers report unity
func (c *Cleaner) gainFor(peak float64) float64 {
	if pn, ok := c.Normaliser.(PeakNormaliser); ok {
		return pn.Gain(peak)
	}
	return 1
}

// capDuration returns the smaller of the non-zero limits, or 0 if both are unset
func capDuration(a, b time.Duration) time.Duration {
	switch {
	case a <= 0:
		return max(b, 0)
	case b <= 0:
		return a
	default:
		return min(a, b)
	}
}
