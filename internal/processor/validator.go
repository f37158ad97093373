package processor

import (
	"fmt"
	"time"

	"github.com/linuxmatters/humprep/internal/audio"
)

// ClipType is the declared role of a clip in the dataset
type ClipType string

const (
	ClipSong     ClipType = "song"
	ClipFullSong ClipType = "full_song"
	ClipHum      ClipType = "hum"
)

// ParseClipType maps a type name (also the test-set subdirectory name) to a ClipType
func ParseClipType(s string) (ClipType, error) {
	switch t := ClipType(s); t {
	case ClipSong, ClipFullSong, ClipHum:
		return t, nil
	default:
		return "", fmt.Errorf("unknown clip type %q", s)
	}
}

// MinClipDuration is the exclusive lower bound on a valid clip for every type
const MinClipDuration = 500 * time.Millisecond

// ClipPolicy holds the duration rules for one ClipType
type ClipPolicy struct {
	Min         time.Duration // exclusive lower bound
	Max         time.Duration // inclusive upper bound; 0 disables it
	Truncatable bool          // whether a shared target duration may shorten the clip
}

// Validator decides whether a clip's duration is usable for its type
type Validator struct {
	policies map[ClipType]ClipPolicy
}

// NewValidator returns the default policy table: every type must exceed 0.5 s,
// no upper bound, and only songs may be truncated.
func NewValidator() *Validator {
	return &Validator{
		policies: map[ClipType]ClipPolicy{
			ClipSong:     {Min: MinClipDuration, Truncatable: true},
			ClipFullSong: {Min: MinClipDuration, Truncatable: true},
			ClipHum:      {Min: MinClipDuration, Truncatable: false},
		},
	}
}

// WithMaxDuration returns a copy of v with an upper bound for t. Zero disables it.
func (v *Validator) WithMaxDuration(t ClipType, max time.Duration) *Validator {
	out := &Validator{policies: make(map[ClipType]ClipPolicy, len(v.policies))}
	for k, p := range v.policies {
		out.policies[k] = p
	}
	p := out.policies[t]
	p.Max = max
	out.policies[t] = p
	return out
}

// Policy returns the rules for t, or false for an unknown type
func (v *Validator) Policy(t ClipType) (ClipPolicy, bool) {
	p, ok := v.policies[t]
	return p, ok
}

// Rejection reasons reported by Check
const (
	ReasonTooShort    = "too short"
	ReasonTooLong     = "too long"
	ReasonUnknownType = "unknown clip type"
)

// IsValid reports whether buf's duration satisfies the policy for t
func (v *Validator) IsValid(buf *audio.Buffer, t ClipType) bool {
	ok, _ := v.Check(buf, t)
	return ok
}

// Check is IsValid plus the reason a clip fails
func (v *Validator) Check(buf *audio.Buffer, t ClipType) (bool, string) {
	p, ok := v.policies[t]
	if !ok {
		return false, ReasonUnknownType
	}
	d := buf.Duration()
	if d <= p.Min {
		return false, ReasonTooShort
	}
	if p.Max > 0 && d > p.Max {
		return false, ReasonTooLong
	}
	return true, ""
}
