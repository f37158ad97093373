package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/humprep/internal/audio"
	"github.com/linuxmatters/humprep/internal/config"
	"github.com/linuxmatters/humprep/internal/dataset"
	"github.com/linuxmatters/humprep/internal/logging"
	"github.com/linuxmatters/humprep/internal/processor"
	"github.com/linuxmatters/humprep/internal/ui"
)

// CleanCmd holds the cleaning flags shared by its subcommands. Pointer flags
// override the config only when given.
type CleanCmd struct {
	Workers         *int           `short:"j" help:"Parallel workers, 0 for one per CPU"`
	Format          *string        `help:"Output encoding: mp3 or wav"`
	ThresholdDB     *float64       `name:"threshold-db" help:"Window RMS level in dBFS that counts as signal (default -40)"`
	Window          *time.Duration `help:"Silence detector window (default 10ms)"`
	HeadroomDB      *float64       `name:"headroom-db" help:"Peak headroom below full scale in dB (default 0.1)"`
	MaxSongDuration *time.Duration `name:"max-song-duration" help:"Reject songs longer than this after trimming, 0 to disable"`
	MaxHumDuration  *time.Duration `name:"max-hum-duration" help:"Reject hums longer than this after trimming, 0 to disable"`
	NotchMains      bool           `name:"notch-mains" help:"Remove mains hum before silence detection"`
	MainsHz         *int           `name:"mains-hz" help:"Mains frequency for --notch-mains, 50 or 60 (default: detect from timezone)"`
	ParallelGroups  bool           `name:"parallel-groups" help:"Clean training groups concurrently"`

	Train TrainCmd `cmd:"" help:"Clean every song/hum pair listed in train_meta.csv"`
	Test  TestCmd  `cmd:"" help:"Clean a test set's hum/ and full_song/ clips, keeping clips that fail validation"`
}

// settings merges the given flags over cfg and validates the result
func (c *CleanCmd) settings(cfg config.Config) (config.PreprocessingConfig, error) {
	p := &cfg.Preprocessing
	if c.Workers != nil {
		p.Workers = *c.Workers
	}
	if c.Format != nil {
		p.Format = *c.Format
	}
	if c.ThresholdDB != nil {
		p.ThresholdDB = *c.ThresholdDB
	}
	if c.Window != nil {
		p.Window = *c.Window
	}
	if c.HeadroomDB != nil {
		p.HeadroomDB = *c.HeadroomDB
	}
	if c.MaxSongDuration != nil {
		p.MaxSongDuration = *c.MaxSongDuration
	}
	if c.MaxHumDuration != nil {
		p.MaxHumDuration = *c.MaxHumDuration
	}
	if c.MainsHz != nil {
		p.MainsHz = *c.MainsHz
	}
	if c.NotchMains {
		p.NotchMains = true
	}
	if c.ParallelGroups {
		p.ParallelGroups = true
	}
	return cfg.Preprocessing, cfg.Validate()
}

// TrainCmd cleans the training set pair by pair
type TrainCmd struct {
	Root string `arg:"" optional:"" type:"path" help:"Raw dataset root (default: path.raw_path)"`
	Out  string `arg:"" optional:"" type:"path" help:"Output root; files go under <out>/train (default: path.preprocessed_path)"`
}

func (c *TrainCmd) Run(ctx context.Context, app *App, clean *CleanCmd) error {
	p, err := clean.settings(app.Config)
	if err != nil {
		return err
	}
	root, out, err := roots(c.Root, c.Out, app.Config.Path)
	if err != nil {
		return err
	}

	rows, meta, err := loadRows(root, app.Logger)
	if err != nil {
		return err
	}

	cleaner := app.newCleaner(p)
	format := cleaner.Encoder.Format()
	groups := processor.BuildTrainGroups(groupSpecs(dataset.GroupByID(rows)), root, out, format)

	d := processor.NewDispatcher(cleaner, app.Logger)
	pool := newPool(p.Workers, p.ParallelGroups)
	app.Logger.Info("cleaning training set",
		slog.String("root", root), slog.String("out", out),
		slog.Int("groups", len(groups)), slog.Int("pairs", len(rows)),
		slog.Bool("parallel_groups", pool != nil))

	var sum processor.TrainSummary
	err = app.track(ctx, "clean train", func(ctx context.Context, send func(tea.Msg)) {
		d.OnEvent = func(ev processor.Event) { send(ui.ProgressMsg{Event: ev}) }
		send(ui.StageStartMsg{Stage: processor.StageTrain, Total: len(groups)})
		sum = d.CleanTrainSet(ctx, groups, pool)
		send(ui.StageCompleteMsg{Stage: processor.StageTrain})
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	metaPath := filepath.Join(out, dataset.MetaFileName)
	if err := dataset.WriteCSVFile(metaPath, retainedRows(rows, sum.Retained, root, format)); err != nil {
		return fmt.Errorf("write cleaned metadata: %w", err)
	}
	app.Logger.Info("cleaned metadata written", slog.String("path", metaPath), slog.Int("pairs", sum.PairsRetained))

	return app.finish(logging.ReportData{
		DataRoot: root,
		OutRoot:  out,
		Settings: &p,
		Meta:     meta,
		Train:    &sum,
	})
}

// TestCmd cleans one test set in best-effort mode
type TestCmd struct {
	Root     string  `arg:"" optional:"" type:"path" help:"Raw dataset root (default: path.raw_path)"`
	Out      string  `arg:"" optional:"" type:"path" help:"Output root; files go under <out>/<test-name> (default: path.preprocessed_path)"`
	TestName *string `name:"test-name" help:"Test set directory under the root (default public_test)"`
}

func (c *TestCmd) Run(ctx context.Context, app *App, clean *CleanCmd) error {
	p, err := clean.settings(app.Config)
	if err != nil {
		return err
	}
	if c.TestName != nil {
		p.TestName = *c.TestName
	}
	root, out, err := roots(c.Root, c.Out, app.Config.Path)
	if err != nil {
		return err
	}

	cleaner := app.newCleaner(p)
	files, err := processor.ScanTestSet(root, p.TestName, out, cleaner.Encoder.Format())
	if err != nil {
		return err
	}

	d := processor.NewDispatcher(cleaner, app.Logger)
	pool := processor.NewPool(p.Workers)
	app.Logger.Info("cleaning test set",
		slog.String("root", root), slog.String("test_name", p.TestName),
		slog.Int("files", len(files)), slog.Int("workers", pool.Workers()))

	var sum processor.TestSummary
	err = app.track(ctx, "clean test", func(ctx context.Context, send func(tea.Msg)) {
		d.OnEvent = func(ev processor.Event) { send(ui.ProgressMsg{Event: ev}) }
		send(ui.StageStartMsg{Stage: processor.StageTest, Total: len(files)})
		sum = d.CleanTestSet(ctx, files, pool)
		send(ui.StageCompleteMsg{Stage: processor.StageTest})
	})
	if err != nil {
		return err
	}

	return app.finish(logging.ReportData{
		DataRoot: filepath.Join(root, p.TestName),
		OutRoot:  filepath.Join(out, p.TestName),
		Settings: &p,
		Test:     &sum,
	})
}

// roots resolves the raw and output roots from arguments, then config
func roots(root, out string, paths config.PathConfig) (string, string, error) {
	root = pick(root, paths.RawPath)
	out = pick(out, paths.PreprocessedPath)
	if root == "" || out == "" {
		return "", "", errors.New("dataset and output roots are required, as arguments or path.raw_path and path.preprocessed_path")
	}
	if filepath.Clean(root) == filepath.Clean(out) {
		return "", "", errors.New("output root must differ from the dataset root")
	}
	return root, out, nil
}

// loadRows reads root/train_meta.csv, or scans song/ and hum/ when it is missing.
// The scan report is returned only when a scan happened.
func loadRows(root string, logger *slog.Logger) ([]dataset.Row, *dataset.Report, error) {
	path := filepath.Join(root, dataset.MetaFileName)
	rows, err := dataset.ReadCSVFile(path)
	if err == nil {
		return rows, nil, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, err
	}

	logger.Info("metadata not found, scanning song/ and hum/", slog.String("path", path))
	rep, err := dataset.Generate(root, logger)
	if err != nil {
		return nil, nil, err
	}
	return rep.Rows, &rep, nil
}

// groupSpecs turns metadata groups into dispatcher input, one pair per row
func groupSpecs(groups []dataset.IDGroup) []processor.GroupSpec {
	specs := make([]processor.GroupSpec, len(groups))
	for i, g := range groups {
		specs[i] = processor.GroupSpec{MusicID: g.MusicID}
		for _, r := range g.Rows {
			specs[i].Songs = append(specs[i].Songs, r.SongPath)
			specs[i].Hums = append(specs[i].Hums, r.HumPath)
		}
	}
	return specs
}

// retainedRows keeps the metadata rows whose pair survived cleaning, in their
// original order, with paths pointing at the re-encoded files.
func retainedRows(rows []dataset.Row, retained []processor.Pair, root string, format audio.Format) []dataset.Row {
	kept := make(map[[2]string]bool, len(retained))
	for _, p := range retained {
		kept[[2]string{p.Song.Source, p.Hum.Source}] = true
	}

	out := make([]dataset.Row, 0, len(retained))
	for _, r := range rows {
		key := [2]string{filepath.Join(root, r.SongPath), filepath.Join(root, r.HumPath)}
		if !kept[key] {
			continue
		}
		out = append(out, dataset.Row{
			MusicID:  r.MusicID,
			SongPath: processor.ReplaceExt(r.SongPath, format),
			HumPath:  processor.ReplaceExt(r.HumPath, format),
		})
	}
	return out
}
