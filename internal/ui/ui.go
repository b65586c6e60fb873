package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/parkdir/parkdir/internal/compat"
	"github.com/parkdir/parkdir/internal/registry"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	starStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	headerStyle  = cellStyle.Bold(true)
)

const (
	favouriteMark = "★"
	passwordMark  = "locked"
	offlineMark   = "-"
)

// FormatError returns a styled multi-line error message.
func FormatError(title, detail, suggestion string) string {
	out := errorStyle.Render("Error: "+title) + "\n"
	if detail != "" {
		out += "  " + detail + "\n"
	}
	if suggestion != "" {
		out += "  " + hintStyle.Render("Hint: "+suggestion) + "\n"
	}
	return out
}

// Success prints a green success message.
func Success(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// Warn prints a yellow warning message.
func Warn(msg string) {
	fmt.Println(warnStyle.Render("Warning: " + msg))
}

// Bold renders text in bold.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// Hint renders text in dim italic.
func Hint(s string) string {
	return hintStyle.Render(s)
}

// StatusLine renders the directory status shown under the list.
func StatusLine(text string) string {
	return dimStyle.Render(text)
}

// Version renders a server version coloured by how it compares with the
// local build. Servers that have not reported a version show as offline.
func Version(policy compat.Policy, version string) string {
	switch policy.Classify(version) {
	case compat.Compatible:
		return successStyle.Render(version)
	case compat.Incompatible:
		return errorStyle.Render(version)
	default:
		return dimStyle.Render(offlineMark)
	}
}

// ServerTable renders the server list in display order.
func ServerTable(servers []registry.Server, policy compat.Policy) string {
	rows := make([][]string, 0, len(servers))
	for i, s := range servers {
		rows = append(rows, ServerRow(i, s, policy))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("#", "", "NAME", "PLAYERS", "VERSION", "ADDRESS", "").
		Rows(rows...).
		StyleFunc(tableStyle)

	return t.String()
}

// headerRow is the row index StyleFunc receives for the header
const headerRow = 0

func tableStyle(row, col int) lipgloss.Style {
	if row == headerRow {
		return headerStyle
	}
	return cellStyle
}

// ServerRow renders the cells of one list entry.
func ServerRow(index int, s registry.Server, policy compat.Policy) []string {
	fav := ""
	if s.Favourite {
		fav = starStyle.Render(favouriteMark)
	}
	lock := ""
	if s.RequiresPassword {
		lock = warnStyle.Render(passwordMark)
	}
	name := s.Name
	if s.Description != "" {
		name += " " + dimStyle.Render(s.Description)
	}
	return []string{
		strconv.Itoa(index),
		fav,
		name,
		s.PlayerCount(),
		Version(policy, s.Version),
		s.Address,
		lock,
	}
}

// Option renders a single line describing a server, used by pickers.
func Option(s registry.Server, policy compat.Policy) string {
	line := s.Name
	if s.Favourite {
		line = favouriteMark + " " + line
	}
	if players := s.PlayerCount(); players != "" {
		line += "  " + players
	}
	line += "  " + Version(policy, s.Version)
	if s.RequiresPassword {
		line += "  " + passwordMark
	}
	return line
}
