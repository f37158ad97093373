package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/humprep/internal/processor"
)

var (
	okIcon   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
	warnIcon = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("⚠")
	failIcon = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7263D")).Render("✗")
	mutedTxt = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	if m.Current < 0 {
		b.WriteString(mutedTxt.Render("Preparing..."))
		return b.String()
	}

	for i, s := range m.Stages {
		if i == m.Current && !s.Complete {
			b.WriteString(renderStageDetails(s))
		} else {
			b.WriteString(renderStageLine(s))
		}
		b.WriteString("\n")
	}

	if len(m.Recent) > 0 {
		b.WriteString("\n")
		b.WriteString(renderRecent(m.Recent))
	}

	b.WriteString("\n")
	b.WriteString(mutedTxt.Render("q to stop after the current items"))
	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#2E86AB")).
		Render("Humprep 🎵 - " + m.Title)

	subtitle := mutedTxt.Italic(true).
		Render(fmt.Sprintf("Elapsed %s", time.Since(m.StartTime).Round(time.Second)))

	return title + "\n" + subtitle
}

func stageTitle(name string) string {
	switch name {
	case processor.StageTrain:
		return "Training set"
	case processor.StageTest:
		return "Test set"
	default:
		return name
	}
}

// renderStageDetails renders the boxed progress of the running stage
func renderStageDetails(s StageProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#2E86AB")).
		Padding(0, 1).
		Width(60)

	var content strings.Builder
	unit := "groups"
	if s.Name == processor.StageTest {
		unit = "files"
	}
	content.WriteString(fmt.Sprintf("%s: %d/%d %s\n", stageTitle(s.Name), s.Done, s.Total, unit))
	content.WriteString(renderProgressBar(s.Progress(), 40))
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs | Remaining: ~%.1fs\n", s.Elapsed.Seconds(), s.Remaining().Seconds()))
	content.WriteString(stageCounts(s))

	return box.Render(content.String())
}

// renderStageLine renders a finished or earlier stage as one line
func renderStageLine(s StageProgress) string {
	icon := okIcon
	if s.Failed > 0 {
		icon = warnIcon
	}
	return fmt.Sprintf(" %s %s  %s", icon, stageTitle(s.Name), mutedTxt.Render(stageCounts(s)))
}

func stageCounts(s StageProgress) string {
	if s.Name == processor.StageTest {
		return fmt.Sprintf("cleaned %d | untrimmed %d | failed %d", s.Done-s.Failed, s.Fallbacks, s.Failed)
	}
	return fmt.Sprintf("pairs kept %d | dropped %d | failed %d", s.Retained, s.Dropped, s.Failed)
}

// renderRecent lists the newest finished items
func renderRecent(items []ItemResult) string {
	var b strings.Builder
	for _, it := range items {
		switch it.Status {
		case ItemCleaned:
			b.WriteString(fmt.Sprintf(" %s %s", okIcon, it.Name))
		case ItemPartial:
			if it.Dropped > 0 {
				b.WriteString(fmt.Sprintf(" %s %s  %s", warnIcon, it.Name, mutedTxt.Render(fmt.Sprintf("%d kept, %d dropped", it.Retained, it.Dropped))))
			} else {
				b.WriteString(fmt.Sprintf(" %s %s  %s", warnIcon, it.Name, mutedTxt.Render("kept untrimmed")))
			}
		case ItemDropped:
			b.WriteString(fmt.Sprintf(" %s %s  %s", failIcon, it.Name, mutedTxt.Render(fmt.Sprintf("all %d pairs dropped", it.Dropped))))
		case ItemFailed:
			b.WriteString(fmt.Sprintf(" %s %s  Error: %v", failIcon, it.Name, it.Err))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = max(0, min(progress, 1))
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render("✨ Cleaning Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, s := range m.Stages {
		b.WriteString(renderStageLine(s))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	return b.String()
}
