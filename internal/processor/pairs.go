package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/linuxmatters/humprep/internal/audio"
	"github.com/mdobak/go-xerrors"
)

// Pair is one song recording and one hum of the same piece
type Pair struct {
	Song ClipDescriptor
	Hum  ClipDescriptor
}

// Group is every pair sharing a music id
type Group struct {
	MusicID string
	Pairs   []Pair
}

// PairDrop records why a pair was left out of the cleaned dataset
type PairDrop struct {
	Pair   Pair
	Member ClipType // the member that failed
	Reason string   // validation reason, empty when Err is set
	Err    error    // decode or encode failure
}

// Label is a short grouping key for summaries, e.g. "hum too short" or "song decode error"
func (d PairDrop) Label() string {
	if d.Err == nil {
		return fmt.Sprintf("%s %s", d.Member, d.Reason)
	}
	var decErr *audio.DecodeError
	var encErr *audio.EncodeError
	switch {
	case errors.As(d.Err, &decErr):
		return fmt.Sprintf("%s decode error", d.Member)
	case errors.As(d.Err, &encErr):
		return fmt.Sprintf("%s encode error", d.Member)
	case errors.Is(d.Err, context.Canceled), errors.Is(d.Err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return fmt.Sprintf("%s error", d.Member)
	}
}

// GroupResult summarises one CleanGroup call
type GroupResult struct {
	MusicID  string
	Target   time.Duration // shortest trimmed song; meaningful only when Measured
	Measured bool          // false when no song decoded, leaving songs uncapped
	Retained []Pair
	Dropped  []PairDrop
}

// Failures counts drops caused by errors rather than validation
func (r GroupResult) Failures() int {
	n := 0
	for _, d := range r.Dropped {
		if d.Err != nil {
			n++
		}
	}
	return n
}

// Coordinator cleans a music group so that songs share one duration and every
// pair is kept or dropped as a whole.
type Coordinator struct {
	Cleaner *Cleaner
	Logger  *slog.Logger
}

// NewCoordinator uses the cleaner's logger when logger is nil
func NewCoordinator(c *Cleaner, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = c.Logger
	}
	return &Coordinator{Cleaner: c, Logger: logger}
}

// groupState tracks outputs within one group so shared members are encoded once
// and never deleted from under a retained pair.
type groupState struct {
	outcomes map[string]Outcome // by destination; successful and rejected cleans
	retained map[string]bool    // destinations belonging to a retained pair
}

// CleanGroup measures every distinct song once, takes the shortest trimmed length
// as the group target, then cleans each pair strictly. Songs are truncated to the
// target; hums keep their own length. When either member of a pair is rejected
// or fails, whatever that pair wrote is removed unless a retained pair shares it.
func (pc *Coordinator) CleanGroup(ctx context.Context, g Group) GroupResult {
	res := GroupResult{MusicID: g.MusicID}
	res.Target, res.Measured = pc.measureTarget(ctx, g)

	st := &groupState{
		outcomes: make(map[string]Outcome),
		retained: make(map[string]bool),
	}

	for _, p := range g.Pairs {
		if err := ctx.Err(); err != nil {
			res.Dropped = append(res.Dropped, PairDrop{Pair: p, Member: ClipSong, Err: err})
			continue
		}

		drop, ok := pc.cleanPair(ctx, st, p, res.Target, res.Measured)
		if !ok {
			pc.Logger.Warn("pair dropped",
				slog.String("music_id", g.MusicID),
				slog.String("song", p.Song.Source),
				slog.String("hum", p.Hum.Source),
				slog.String("reason", drop.Label()))
			if drop.Err != nil {
				pc.Logger.Debug("pair failure detail",
					slog.String("music_id", g.MusicID),
					slog.Any("error", xerrors.New(drop.Err)))
			}
			res.Dropped = append(res.Dropped, drop)
			continue
		}

		st.retained[p.Song.Destination] = true
		st.retained[p.Hum.Destination] = true
		res.Retained = append(res.Retained, p)
	}

	return res
}

// measureTarget returns the minimum trimmed song duration in g, and false when no
// song could be decoded. Songs that fail to decode are logged and excluded; their
// pairs fail later when cleaned. A silent song measures as 0.
func (pc *Coordinator) measureTarget(ctx context.Context, g Group) (time.Duration, bool) {
	seen := make(map[string]bool)
	var target time.Duration
	measured := false

	for _, p := range g.Pairs {
		if seen[p.Song.Source] {
			continue
		}
		seen[p.Song.Source] = true

		d, err := pc.Cleaner.Measure(ctx, p.Song)
		if err != nil {
			pc.Logger.Warn("could not measure song",
				slog.String("music_id", g.MusicID),
				slog.String("song", p.Song.Source),
				slog.Any("error", xerrors.New(err)))
			continue
		}
		if !measured || d < target {
			target = d
			measured = true
		}
	}

	return target, measured
}

func (pc *Coordinator) cleanPair(ctx context.Context, st *groupState, p Pair, target time.Duration, measured bool) (PairDrop, bool) {
	// Clean reads a zero target as no cap; a measured zero leaves nothing of any song
	if measured && target <= 0 {
		return PairDrop{Pair: p, Member: ClipSong, Reason: ReasonTooShort}, false
	}

	song, err := pc.cleanMember(ctx, st, p.Song, target)
	if err != nil {
		return PairDrop{Pair: p, Member: ClipSong, Err: err}, false
	}
	if song.Status == StatusRejected {
		return PairDrop{Pair: p, Member: ClipSong, Reason: song.Reason}, false
	}

	hum, err := pc.cleanMember(ctx, st, p.Hum, 0)
	if err != nil {
		pc.discard(st, p.Song.Destination)
		return PairDrop{Pair: p, Member: ClipHum, Err: err}, false
	}
	if hum.Status == StatusRejected {
		pc.discard(st, p.Song.Destination)
		return PairDrop{Pair: p, Member: ClipHum, Reason: hum.Reason}, false
	}

	return PairDrop{}, true
}

// cleanMember reuses an earlier outcome for the same destination within the group
func (pc *Coordinator) cleanMember(ctx context.Context, st *groupState, desc ClipDescriptor, target time.Duration) (Outcome, error) {
	if out, ok := st.outcomes[desc.Destination]; ok {
		return out, nil
	}
	out, err := pc.Cleaner.Clean(ctx, desc, target, true)
	if err != nil {
		return Outcome{}, err
	}
	st.outcomes[desc.Destination] = out
	return out, nil
}

// discard removes an output written for a dropped pair
func (pc *Coordinator) discard(st *groupState, dest string) {
	if st.retained[dest] {
		return
	}
	delete(st.outcomes, dest)
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		pc.Logger.Error("failed to remove output of dropped pair",
			slog.String("path", dest),
			slog.Any("error", xerrors.New(err)))
	}
}
