package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2E86AB") // Humprep blue
	warnColor    = lipgloss.Color("#FFA500") // Orange
	errorColor   = lipgloss.Color("#D7263D") // Red
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	// Title style - bold blue
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// Error message style
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	// Warning style for drops and fallbacks
	WarnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// Section heading for end-of-run summaries
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginTop(1)

	// Boxed table body
	TableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("Humprep 🎵"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning line
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", WarnStyle.Render("Warning:"), message)
}

// PrintKeyValue prints an aligned "key: value" line
func PrintKeyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(fmt.Sprintf("%-12s", key+":")), ValueStyle.Render(value))
}

// PrintTable prints a titled, boxed block of pre-aligned table text
func PrintTable(w io.Writer, title, table string) {
	if table == "" {
		return
	}
	fmt.Fprintln(w, SectionStyle.Render(title))
	fmt.Fprintln(w, TableStyle.Render(strings.TrimRight(table, "\n")))
}
