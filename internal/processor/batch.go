package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linuxmatters/humprep/internal/audio"
	"github.com/mdobak/go-xerrors"
)

// TrainDir is the output subdirectory for the cleaned training set
const TrainDir = "train"

// Stage names reported in progress events
const (
	StageTrain = "train"
	StageTest  = "test"
)

// Event is a progress notification from a batch run
type Event struct {
	Stage string
	Done  int    // items finished so far
	Total int    // items in this stage
	Item  string // music id for train, source path for test
	Err   error  // set when the item failed
	// Train only
	Retained int
	Dropped  int
	// Test only
	Fallback bool
}

// GroupSpec is a music id with its raw song and hum paths, relative to the data root
type GroupSpec struct {
	MusicID string
	Songs   []string // one entry per pair, matched by index with Hums
	Hums    []string
}

// TrainSummary is the end-of-run report for the training set
type TrainSummary struct {
	Groups        int
	Unmatched     []string       // music ids skipped because they had no pairs
	PairsRetained int
	PairsDropped  int
	Retained      []Pair         // every retained pair, in group order
	DropReasons   map[string]int // PairDrop.Label -> count
	Failures      []TaskFailure  // pairs dropped by errors, plus panicked groups
	Elapsed       time.Duration
}

// TestSummary is the end-of-run report for a test set
type TestSummary struct {
	Files     int
	Cleaned   int
	Fallbacks int
	Failures  []TaskFailure
	Elapsed   time.Duration
}

// TaskFailure names the item that failed and why
type TaskFailure struct {
	Item string
	Err  error
}

// Dispatcher fans cleaning work out over groups or files
type Dispatcher struct {
	Coordinator *Coordinator
	Logger      *slog.Logger
	OnEvent     func(Event) // optional; called from worker goroutines, serialised
	mu          sync.Mutex
}

// NewDispatcher builds a dispatcher around a shared cleaner
func NewDispatcher(c *Cleaner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = c.Logger
	}
	return &Dispatcher{
		Coordinator: NewCoordinator(c, logger),
		Logger:      logger,
	}
}

func (d *Dispatcher) emit(ev Event) {
	if d.OnEvent == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OnEvent(ev)
}

// CleanTrainSet cleans every group. With a nil pool groups run one after another;
// otherwise they run concurrently on the pool, which is safe because no two
// groups share a destination. Groups without pairs are counted as unmatched.
func (d *Dispatcher) CleanTrainSet(ctx context.Context, groups []Group, pool *Pool) TrainSummary {
	start := time.Now()
	sum := TrainSummary{Groups: len(groups), DropReasons: make(map[string]int)}

	results := make([]GroupResult, len(groups))
	var done int
	var doneMu sync.Mutex

	work := func(i int) error {
		g := groups[i]
		if len(g.Pairs) == 0 {
			d.Logger.Warn("music id has no song/hum pairs, skipping", slog.String("music_id", g.MusicID))
			results[i] = GroupResult{MusicID: g.MusicID}
		} else {
			results[i] = d.Coordinator.CleanGroup(ctx, g)
		}

		doneMu.Lock()
		done++
		n := done
		doneMu.Unlock()

		d.emit(Event{
			Stage:    StageTrain,
			Done:     n,
			Total:    len(groups),
			Item:     g.MusicID,
			Retained: len(results[i].Retained),
			Dropped:  len(results[i].Dropped),
		})
		return nil
	}

	var errs []error
	if pool == nil {
		errs = make([]error, len(groups))
		for i := range groups {
			errs[i] = runRecovered(i, work)
		}
	} else {
		errs = pool.Run(len(groups), work)
	}

	for i, r := range results {
		if errs[i] != nil {
			sum.Failures = append(sum.Failures, TaskFailure{Item: groups[i].MusicID, Err: errs[i]})
			d.Logger.Error("group failed", slog.String("music_id", groups[i].MusicID), slog.Any("error", xerrors.New(errs[i])))
			continue
		}
		if len(groups[i].Pairs) == 0 {
			sum.Unmatched = append(sum.Unmatched, groups[i].MusicID)
			continue
		}
		sum.PairsRetained += len(r.Retained)
		sum.Retained = append(sum.Retained, r.Retained...)
		sum.PairsDropped += len(r.Dropped)
		for _, drop := range r.Dropped {
			sum.DropReasons[drop.Label()]++
			if drop.Err != nil {
				sum.Failures = append(sum.Failures, TaskFailure{
					Item: fmt.Sprintf("%s (%s)", r.MusicID, filepath.Base(memberSource(drop))),
					Err:  drop.Err,
				})
			}
		}
	}

	sum.Elapsed = time.Since(start)
	return sum
}

// CleanTestSet cleans every file in best-effort mode on the pool. Failures are
// captured per file; the call returns only after every file has been attempted.
func (d *Dispatcher) CleanTestSet(ctx context.Context, files []ClipDescriptor, pool *Pool) TestSummary {
	start := time.Now()
	if pool == nil {
		pool = NewPool(0)
	}

	outcomes := make([]Outcome, len(files))
	var done int
	var doneMu sync.Mutex

	errs := pool.Run(len(files), func(i int) error {
		out, err := d.Coordinator.Cleaner.Clean(ctx, files[i], 0, false)
		outcomes[i] = out

		doneMu.Lock()
		done++
		n := done
		doneMu.Unlock()

		d.emit(Event{
			Stage:    StageTest,
			Done:     n,
			Total:    len(files),
			Item:     files[i].Source,
			Err:      err,
			Fallback: out.Fallback,
		})
		return err
	})

	sum := TestSummary{Files: len(files)}
	for i, err := range errs {
		if err != nil {
			sum.Failures = append(sum.Failures, TaskFailure{Item: files[i].Source, Err: err})
			d.Logger.Error("file failed", slog.String("source", files[i].Source), slog.Any("error", xerrors.New(err)))
			continue
		}
		sum.Cleaned++
		if outcomes[i].Fallback {
			sum.Fallbacks++
			d.Logger.Info("kept untrimmed clip",
				slog.String("source", files[i].Source),
				slog.String("reason", outcomes[i].Reason))
		}
	}

	sum.Elapsed = time.Since(start)
	return sum
}

// runRecovered is the sequential counterpart of Pool.Run's per-task recovery
func runRecovered(i int, task func(int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task(i)
}

func memberSource(d PairDrop) string {
	if d.Member == ClipHum {
		return d.Pair.Hum.Source
	}
	return d.Pair.Song.Source
}

// BuildTrainGroups turns metadata into groups of descriptors. Paths in specs are
// relative to dataRoot; outputs mirror them under outRoot/train with the extension
// replaced by out. Groups keep the order of specs.
func BuildTrainGroups(specs []GroupSpec, dataRoot, outRoot string, out audio.Format) []Group {
	groups := make([]Group, 0, len(specs))
	for _, s := range specs {
		g := Group{MusicID: s.MusicID}
		n := min(len(s.Songs), len(s.Hums))
		for i := 0; i < n; i++ {
			g.Pairs = append(g.Pairs, Pair{
				Song: trainDescriptor(s.Songs[i], ClipSong, dataRoot, outRoot, out),
				Hum:  trainDescriptor(s.Hums[i], ClipHum, dataRoot, outRoot, out),
			})
		}
		groups = append(groups, g)
	}
	return groups
}

func trainDescriptor(rel string, t ClipType, dataRoot, outRoot string, out audio.Format) ClipDescriptor {
	return ClipDescriptor{
		Source:      filepath.Join(dataRoot, rel),
		Destination: filepath.Join(outRoot, TrainDir, ReplaceExt(rel, out)),
		Type:        t,
		Format:      audio.FormatFromPath(rel),
	}
}

// ErrOutputCollision is returned when two sources would be cleaned to one destination
var ErrOutputCollision = errors.New("sources share an output path")

// testSubdirs are the test-set subdirectories, each named after its clip type
var testSubdirs = []ClipType{ClipHum, ClipFullSong}

// ScanTestSet lists the .mp3 and .wav files under dataRoot/testName/{hum,full_song}.
// Outputs mirror them under outRoot/testName with the extension replaced by out.
// A missing subdirectory is an error, as are two sources differing only in
// extension, since both would be written to the same destination.
func ScanTestSet(dataRoot, testName, outRoot string, out audio.Format) ([]ClipDescriptor, error) {
	var files []ClipDescriptor
	owners := make(map[string]string) // destination -> source
	for _, t := range testSubdirs {
		dir := filepath.Join(dataRoot, testName, string(t))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read test set directory: %w", err)
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch audio.FormatFromPath(e.Name()) {
			case audio.FormatMP3, audio.FormatWAV:
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			desc := ClipDescriptor{
				Source:      filepath.Join(dir, name),
				Destination: filepath.Join(outRoot, testName, string(t), ReplaceExt(name, out)),
				Type:        t,
				Format:      audio.FormatFromPath(name),
			}
			if prev, ok := owners[desc.Destination]; ok {
				return nil, fmt.Errorf("%w: %s and %s both write %s", ErrOutputCollision, prev, desc.Source, desc.Destination)
			}
			owners[desc.Destination] = desc.Source
			files = append(files, desc)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("test set contains no .mp3 or .wav files")
	}
	return files, nil
}

// ReplaceExt swaps the extension of path for f's
func ReplaceExt(path string, f audio.Format) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + f.Ext()
}
