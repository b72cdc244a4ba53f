package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Green marks what the member benefits from, red what was rejected
// or frozen.
var (
	ColorApplied  = lipgloss.Color("#8ec07c")
	ColorSkipped  = lipgloss.Color("#fabd2f")
	ColorRejected = lipgloss.Color("#fb4934")
	ColorAmount   = lipgloss.Color("#83a598")
	ColorDim      = lipgloss.Color("#928374")
	ColorFg       = lipgloss.Color("#ebdbb2")
	ColorHeader   = lipgloss.Color("#fe8019")
)

var (
	StyleApplied  = lipgloss.NewStyle().Foreground(ColorApplied)
	StyleSkipped  = lipgloss.NewStyle().Foreground(ColorSkipped)
	StyleRejected = lipgloss.NewStyle().Foreground(ColorRejected)
	StyleAmount   = lipgloss.NewStyle().Foreground(ColorAmount)
	StyleDue      = lipgloss.NewStyle().Foreground(ColorApplied).Bold(true)
	StyleDim      = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader   = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold     = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// LockBadge renders the lifecycle state of a decision tree.
func LockBadge(locked, current bool) string {
	switch {
	case !current:
		return StyleDim.Render("✖ superseded")
	case locked:
		return StyleRejected.Render("■ locked")
	default:
		return StyleApplied.Render("● editable")
	}
}

// Success prefixes a confirmation line with a check mark.
func Success(format string, args ...any) string {
	return StyleApplied.Render("✔") + " " + fmt.Sprintf(format, args...)
}

// Header renders an upper-cased section title over a rule.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
