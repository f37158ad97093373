package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/linuxmatters/humprep/internal/config"
	"github.com/linuxmatters/humprep/internal/dataset"
	"github.com/linuxmatters/humprep/internal/processor"
)

// =============================================================================
// Report Section Formatting Helpers
// =============================================================================

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// ReportData contains everything a run report can show. Nil sections are omitted.
type ReportData struct {
	RunID     string
	Command   string // e.g. "clean train"
	DataRoot  string
	OutRoot   string
	StartTime time.Time
	EndTime   time.Time
	Settings  *config.PreprocessingConfig

	Meta  *dataset.Report
	Train *processor.TrainSummary
	Test  *processor.TestSummary
	Split *dataset.SplitResult
}

// GenerateReport writes the run report to path, creating parent directories.
//
// Report structure:
// 1. Header - run id, command, roots, timings
// 2. Settings - cleaning parameters in effect
// 3. One section per stage that ran (metadata, train, test, split)
// 4. Suggestions - prioritised hints derived from the counts
// 5. Failures - every item that failed with its error
func GenerateReport(path string, data ReportData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	WriteReport(f, data)
	return f.Close()
}

// WriteReport renders the report to w
func WriteReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)

	if data.Settings != nil {
		writeSettings(w, data.Settings)
	}
	if data.Meta != nil {
		writeMetaSection(w, data.Meta)
	}
	if data.Train != nil {
		writeTrainSection(w, data.Train)
	}
	if data.Test != nil {
		writeTestSection(w, data.Test)
	}
	if data.Split != nil {
		writeSplitSection(w, data.Split)
	}

	writeTips(w, GenerateRunTips(data))
	writeFailures(w, data)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// formatLimit renders an optional upper bound
func formatLimit(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return formatDuration(d)
}

func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "Humprep Run Report")
	fmt.Fprintln(w, "==================")
	if data.RunID != "" {
		fmt.Fprintf(w, "Run:      %s\n", data.RunID)
	}
	if data.Command != "" {
		fmt.Fprintf(w, "Command:  %s\n", data.Command)
	}
	if data.DataRoot != "" {
		fmt.Fprintf(w, "Data:     %s\n", data.DataRoot)
	}
	if data.OutRoot != "" {
		fmt.Fprintf(w, "Output:   %s\n", data.OutRoot)
	}
	if !data.EndTime.IsZero() {
		fmt.Fprintf(w, "Finished: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	}
	if !data.StartTime.IsZero() && !data.EndTime.IsZero() {
		fmt.Fprintf(w, "Elapsed:  %s\n", formatDuration(data.EndTime.Sub(data.StartTime)))
	}
	fmt.Fprintln(w, "")
}

func writeSettings(w io.Writer, p *config.PreprocessingConfig) {
	writeSection(w, "Settings")
	fmt.Fprintf(w, "Silence threshold:  %s\n", formatMetricWithUnit(p.ThresholdDB, 1, "dBFS"))
	fmt.Fprintf(w, "Detector window:    %s\n", p.Window)
	fmt.Fprintf(w, "Peak headroom:      %s\n", formatMetricWithUnit(-p.HeadroomDB, 1, "dBFS"))
	fmt.Fprintf(w, "Max song duration:  %s\n", formatLimit(p.MaxSongDuration))
	fmt.Fprintf(w, "Max hum duration:   %s\n", formatLimit(p.MaxHumDuration))
	fmt.Fprintf(w, "Output format:      %s\n", p.Format)
	if p.NotchMains {
		fmt.Fprintln(w, "Mains notch:        enabled")
	}
	fmt.Fprintln(w, "")
}

func writeMetaSection(w io.Writer, r *dataset.Report) {
	writeSection(w, "Metadata")
	t := NewMetricTable("Count")
	t.AddRow("Music ids", []string{fmt.Sprint(r.MusicIDs)}, "", "")
	t.AddRow("Songs", []string{fmt.Sprint(r.Songs)}, "files", "")
	t.AddRow("Hums", []string{fmt.Sprint(r.Hums)}, "files", "")
	t.AddRow("Pairs", []string{fmt.Sprint(len(r.Rows))}, "rows", "")
	t.AddRow("Songs without hums", []string{fmt.Sprint(len(r.SongsWithoutHums))}, "ids", "")
	t.AddRow("Hums without songs", []string{fmt.Sprint(len(r.HumsWithoutSongs))}, "ids", "")
	t.AddRow("Unparsed names", []string{fmt.Sprint(len(r.Unparsed))}, "files", "")
	fmt.Fprint(w, t.String())
	fmt.Fprintln(w, "")
}

func writeTrainSection(w io.Writer, s *processor.TrainSummary) {
	writeSection(w, "Training Set")
	fmt.Fprint(w, TrainTable(s).String())
	fmt.Fprintln(w, "")

	if reasons := DropReasonTable(s).String(); reasons != "" {
		fmt.Fprintln(w, "Drop reasons:")
		fmt.Fprint(w, reasons)
		fmt.Fprintln(w, "")
	}
	if len(s.Unmatched) > 0 {
		fmt.Fprintf(w, "Music ids without pairs: %s\n\n", strings.Join(s.Unmatched, ", "))
	}
}

func writeTestSection(w io.Writer, s *processor.TestSummary) {
	writeSection(w, "Test Set")
	fmt.Fprint(w, TestTable(s).String())
	fmt.Fprintln(w, "")
}

func writeSplitSection(w io.Writer, r *dataset.SplitResult) {
	writeSection(w, "Validation Split")
	fmt.Fprintf(w, "Music ids:       %d\n", r.MusicIDs)
	fmt.Fprintf(w, "Sampled for val: %d\n", len(r.ValIDs))
	fmt.Fprintf(w, "Pairs moved:     %d\n", r.Moved)
	fmt.Fprintf(w, "Pairs skipped:   %d\n", r.Skipped)
	if r.Restored > 0 {
		fmt.Fprintf(w, "Files restored:  %d (from a previous split)\n", r.Restored)
	}
	fmt.Fprintln(w, "")
}

func writeTips(w io.Writer, tips []RunTip) {
	if len(tips) == 0 {
		return
	}
	writeSection(w, "Suggestions")
	for _, tip := range tips {
		fmt.Fprintf(w, "- %s\n", wrapText(tip.Message, 76, "  "))
	}
	fmt.Fprintln(w, "")
}

func writeFailures(w io.Writer, data ReportData) {
	var failures []processor.TaskFailure
	if data.Train != nil {
		failures = append(failures, data.Train.Failures...)
	}
	if data.Test != nil {
		failures = append(failures, data.Test.Failures...)
	}
	if len(failures) == 0 {
		return
	}

	writeSection(w, fmt.Sprintf("Failures (%d)", len(failures)))
	for _, f := range failures {
		fmt.Fprintf(w, "%s\n    %v\n", f.Item, f.Err)
	}
	fmt.Fprintln(w, "")
}

// TrainTable summarises a training run as a Count/Share table over pairs
func TrainTable(s *processor.TrainSummary) *MetricTable {
	total := s.PairsRetained + s.PairsDropped
	t := NewMetricTable("Count", "Share")
	t.AddRow("Music ids", []string{fmt.Sprint(s.Groups), ""}, "", "")
	t.AddCountRow("Pairs retained", s.PairsRetained, total, "pairs", "")
	t.AddCountRow("Pairs dropped", s.PairsDropped, total, "pairs", interpretDropShare(s.PairsDropped, total))
	if len(s.Unmatched) > 0 {
		t.AddCountRow("Ids without pairs", len(s.Unmatched), s.Groups, "ids", "")
	}
	t.AddRow("Elapsed", []string{formatDuration(s.Elapsed), ""}, "", "")
	return t
}

// TestTable summarises a test-set run as a Count/Share table over files
func TestTable(s *processor.TestSummary) *MetricTable {
	t := NewMetricTable("Count", "Share")
	t.AddCountRow("Files cleaned", s.Cleaned, s.Files, "files", "")
	t.AddCountRow("Kept untrimmed", s.Fallbacks, s.Files, "files", "")
	t.AddCountRow("Failed", len(s.Failures), s.Files, "files", "")
	t.AddRow("Elapsed", []string{formatDuration(s.Elapsed), ""}, "", "")
	return t
}

// DropReasonTable lists drop labels by count with their share of dropped pairs.
// It renders empty when nothing was dropped.
func DropReasonTable(s *processor.TrainSummary) *MetricTable {
	t := NewMetricTable("Count", "Share")
	for _, label := range sortedReasons(s.DropReasons) {
		t.AddCountRow(label, s.DropReasons[label], s.PairsDropped, "pairs", "")
	}
	return t
}

// interpretDropShare flags unusually lossy training runs
func interpretDropShare(dropped, total int) string {
	if total == 0 {
		return ""
	}
	share := float64(dropped) / float64(total)
	switch {
	case share == 0:
		return ""
	case share < 0.05:
		return "typical"
	case share < 0.2:
		return "elevated"
	default:
		return "high, check the suggestions below"
	}
}

// sortedReasons orders drop labels by count, then name
func sortedReasons(m map[string]int) []string {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		if m[labels[i]] != m[labels[j]] {
			return m[labels[i]] > m[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}
