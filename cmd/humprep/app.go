package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/linuxmatters/humprep/internal/audio"
	"github.com/linuxmatters/humprep/internal/cli"
	"github.com/linuxmatters/humprep/internal/config"
	"github.com/linuxmatters/humprep/internal/logging"
	"github.com/linuxmatters/humprep/internal/mains"
	"github.com/linuxmatters/humprep/internal/processor"
	"github.com/linuxmatters/humprep/internal/ui"
	"github.com/mattn/go-isatty"
)

// defaultTUILog receives logs while the progress view owns the terminal
const defaultTUILog = "humprep.log"

// App carries what every command needs: settings, logger and run identity
type App struct {
	RunID   string
	Command string
	Config  config.Config
	Logger  *slog.Logger
	TUI     bool   // progress view enabled for this run
	Report  string // report path, empty to skip
	Start   time.Time
	Out     io.Writer // styled console output

	logFile *os.File
}

// newApp loads configuration and opens the log destination. The progress view
// is used only for batch commands on an interactive terminal.
func newApp(c *CLI, command string, batch bool) (*App, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.FFmpeg != "" {
		cfg.FFmpeg = c.FFmpeg
	}

	app := &App{
		RunID:   uuid.NewString(),
		Command: command,
		Config:  cfg,
		TUI:     batch && !c.NoTUI && isatty.IsTerminal(os.Stdout.Fd()),
		Report:  c.Report,
		Start:   time.Now(),
		Out:     os.Stdout,
	}

	logPath := c.LogFile
	if logPath == "" && app.TUI {
		logPath = defaultTUILog
	}

	var w io.Writer = os.Stderr
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		app.logFile = f
		w = f
	}

	app.Logger = logging.NewLogger(w, c.Verbose).With(slog.String("run_id", app.RunID))
	return app, nil
}

// Close releases the log file, if any
func (a *App) Close() {
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// newCleaner builds the decode/encode stack for p. With the mains notch enabled
// every clip is decoded through ffmpeg so the filter runs before silence detection.
func (a *App) newCleaner(p config.PreprocessingConfig) *processor.Cleaner {
	dec := audio.DefaultFFmpegDecoder()
	dec.Binary = a.Config.FFmpeg

	var decoders *audio.Decoders
	if p.NotchMains {
		det := mains.Resolve(p.MainsHz)
		dec.Filter = mains.NotchFilter(det.Hz, mains.DefaultHarmonics)
		decoders = audio.NewDecoderRegistry(dec)
		a.Logger.Info("mains notch enabled",
			slog.Int("hz", det.Hz),
			slog.String("source", string(det.Source)),
			slog.String("country", det.Country),
			slog.String("filter", dec.Filter))
		if det.Mixed {
			a.Logger.Warn("country runs both 50 and 60 Hz mains, set --mains-hz if recordings hum at the other frequency",
				slog.String("country", det.Country))
		}
	} else {
		decoders = audio.NewDecoders(dec)
	}

	c := processor.NewCleaner(decoders, a.newEncoder(p), a.Logger)
	c.Detector = processor.SilenceDetector{ThresholdDB: p.ThresholdDB, Window: p.Window}
	c.Normaliser = processor.PeakNormaliser{HeadroomDB: p.HeadroomDB}
	c.Validator = processor.NewValidator().
		WithMaxDuration(processor.ClipSong, p.MaxSongDuration).
		WithMaxDuration(processor.ClipFullSong, p.MaxSongDuration).
		WithMaxDuration(processor.ClipHum, p.MaxHumDuration)
	return c
}

func (a *App) newEncoder(p config.PreprocessingConfig) audio.Encoder {
	if p.Format == "wav" {
		return audio.WAVEncoder{BitDepth: 16}
	}
	enc := audio.DefaultMP3Encoder()
	enc.Binary = a.Config.FFmpeg
	return enc
}

// newPool returns nil for sequential runs
func newPool(workers int, parallel bool) *processor.Pool {
	if !parallel {
		return nil
	}
	return processor.NewPool(workers)
}

// track runs work while showing progress, either in the Bubbletea view or as
// log lines. It returns once work has finished, even if the view was closed early;
// closing the view cancels the context passed to work.
func (a *App) track(ctx context.Context, title string, work func(ctx context.Context, send func(tea.Msg))) error {
	if !a.TUI {
		work(ctx, a.logProgress)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(title)
	events := model.ProgressChan
	p := tea.NewProgram(model, tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		defer close(done)
		work(ctx, func(msg tea.Msg) { events <- msg })
		events <- ui.AllCompleteMsg{}
	}()

	final, err := p.Run()
	if m, ok := final.(ui.Model); ok && m.Cancelled {
		a.Logger.Warn("stopped by user, finishing items in flight")
		cancel()
	}

	// The view no longer reads; keep the channel moving until work returns
	go func() {
		for {
			select {
			case <-events:
			case <-done:
				return
			}
		}
	}()
	<-done

	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// logProgress is the non-interactive counterpart of the progress view
func (a *App) logProgress(msg tea.Msg) {
	switch m := msg.(type) {
	case ui.StageStartMsg:
		a.Logger.Info("stage started", slog.String("stage", m.Stage), slog.Int("total", m.Total))
	case ui.ProgressMsg:
		ev := m.Event
		if ev.Err != nil {
			a.Logger.Warn("item failed", slog.String("stage", ev.Stage), slog.String("item", ev.Item), slog.Any("error", ev.Err))
			return
		}
		a.Logger.Debug("item done", slog.String("stage", ev.Stage), slog.String("item", ev.Item),
			slog.Int("retained", ev.Retained), slog.Int("dropped", ev.Dropped), slog.Bool("fallback", ev.Fallback))
		step := max(1, ev.Total/10)
		if ev.Done == ev.Total || ev.Done%step == 0 {
			a.Logger.Info("progress", slog.String("stage", ev.Stage), slog.Int("done", ev.Done), slog.Int("total", ev.Total))
		}
	case ui.StageCompleteMsg:
		a.Logger.Info("stage finished", slog.String("stage", m.Stage))
	}
}

// finish prints the summary tables and writes the report file when requested
func (a *App) finish(data logging.ReportData) error {
	data.RunID = a.RunID
	data.Command = a.Command
	data.StartTime = a.Start
	data.EndTime = time.Now()

	if data.Meta != nil {
		cli.PrintKeyValue(a.Out, "Music ids", fmt.Sprint(data.Meta.MusicIDs))
		cli.PrintKeyValue(a.Out, "Songs", fmt.Sprint(data.Meta.Songs))
		cli.PrintKeyValue(a.Out, "Hums", fmt.Sprint(data.Meta.Hums))
		cli.PrintKeyValue(a.Out, "Pairs", fmt.Sprint(len(data.Meta.Rows)))
	}
	if data.Train != nil {
		cli.PrintTable(a.Out, "Training set", logging.TrainTable(data.Train).String())
		cli.PrintTable(a.Out, "Drop reasons", logging.DropReasonTable(data.Train).String())
	}
	if data.Test != nil {
		cli.PrintTable(a.Out, "Test set", logging.TestTable(data.Test).String())
	}
	if data.Split != nil {
		cli.PrintKeyValue(a.Out, "Val ids", fmt.Sprintf("%d of %d", len(data.Split.ValIDs), data.Split.MusicIDs))
		cli.PrintKeyValue(a.Out, "Moved", fmt.Sprintf("%d pairs", data.Split.Moved))
		if data.Split.Skipped > 0 {
			cli.PrintWarning(a.Out, fmt.Sprintf("%d pairs skipped because a cleaned file is missing", data.Split.Skipped))
		}
	}

	for _, tip := range logging.GenerateRunTips(data) {
		cli.PrintWarning(a.Out, tip.Message)
	}

	if a.Report == "" {
		return nil
	}
	if err := logging.GenerateReport(a.Report, data); err != nil {
		return err
	}
	cli.PrintKeyValue(a.Out, "Report", a.Report)
	return nil
}
