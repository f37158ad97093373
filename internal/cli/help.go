package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// appDescription heads the root help page
const appDescription = "Query-by-humming dataset cleaner"

// Help styles
var (
	helpDescStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(warnColor).
				MarginTop(1)

	helpCommandStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	helpArgStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AAAA"))
	helpFlagStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AA00"))
	helpNoteStyle    = lipgloss.NewStyle().Italic(true).Foreground(mutedColor)
)

// helpEntry is one line of a help section: a styled name, its help and an optional note
type helpEntry struct {
	name string
	help string
	note string
}

// StyledHelpPrinter creates a custom help printer with Lipgloss styling.
// Help is shown for the selected command, or the application when none is selected.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		node := ctx.Model.Node
		if selected := ctx.Selected(); selected != nil {
			node = selected
		}

		desc := appDescription
		if node != ctx.Model.Node && node.Help != "" {
			desc = node.Help
		}

		var sb strings.Builder
		sb.WriteString(TitleStyle.Render("Humprep 🎵"))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render(desc))
		sb.WriteString("\n")

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  " + usageLine(ctx.Model.Name, node) + "\n")

		writeHelpSection(&sb, "Commands:", helpCommandStyle, commandEntries(node))
		writeHelpSection(&sb, "Arguments:", helpArgStyle, argumentEntries(node))
		writeHelpSection(&sb, "Flags:", helpFlagStyle, flagEntries(ctx.Flags()))

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

// writeHelpSection skips sections without entries
func writeHelpSection(sb *strings.Builder, title string, nameStyle lipgloss.Style, entries []helpEntry) {
	if len(entries) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  " + nameStyle.Render(e.name))
		if e.help != "" {
			sb.WriteString("  " + e.help)
		}
		if e.note != "" {
			sb.WriteString(" " + helpNoteStyle.Render(e.note))
		}
		sb.WriteString("\n")
	}
}

// usageLine renders e.g. "humprep clean train [flags] [<root>] [<out>]"
func usageLine(app string, node *kong.Node) string {
	parts := []string{app}
	if path := node.Path(); path != "" {
		parts = append(parts, path)
	}
	if len(commandEntries(node)) > 0 {
		parts = append(parts, "<command>")
	}
	parts = append(parts, "[flags]")
	for _, arg := range node.Positional {
		parts = append(parts, arg.Summary())
	}
	return strings.Join(parts, " ")
}

func commandEntries(node *kong.Node) []helpEntry {
	var entries []helpEntry
	for _, child := range node.Children {
		if child.Hidden || child.Type != kong.CommandNode {
			continue
		}
		entries = append(entries, helpEntry{name: child.Name, help: child.Help})
	}
	return entries
}

func argumentEntries(node *kong.Node) []helpEntry {
	var entries []helpEntry
	for _, arg := range node.Positional {
		entries = append(entries, helpEntry{name: arg.Summary(), help: arg.Help})
	}
	return entries
}

// flagEntries lists --help first, then the global flags and those of every
// command on the selected path, in declaration order.
func flagEntries(flags []*kong.Flag) []helpEntry {
	entries := []helpEntry{{name: "-h, --help", help: "Show context-sensitive help."}}
	for _, f := range flags {
		if f.Name == "help" || f.Hidden {
			continue
		}
		e := helpEntry{name: flagName(f), help: f.Help}
		if f.HasDefault && f.Default != "" {
			e.note = "(default: " + f.Default + ")"
		}
		entries = append(entries, e)
	}
	return entries
}

// flagName renders "-j, --workers=INT" style names
func flagName(f *kong.Flag) string {
	name := "--" + f.Name
	if f.Short != 0 {
		name = fmt.Sprintf("-%c, %s", f.Short, name)
	}
	if !f.IsBool() && f.PlaceHolder != "" {
		name += "=" + strings.ToUpper(f.PlaceHolder)
	}
	return name
}
