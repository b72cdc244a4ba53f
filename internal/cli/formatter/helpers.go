package formatter

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const dateLayout = "2006-01-02"

// Date renders a calendar date, or "--" for nil.
func Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return StyleDim.Render("--")
	}
	return t.Format(dateLayout)
}

// TruncID returns the first 8 characters of an ID.
func TruncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Opt renders an optional string, "--" when empty.
func Opt(s *string) string {
	if s == nil || *s == "" {
		return StyleDim.Render("--")
	}
	return *s
}

// KeyValues renders label/value pairs with aligned labels.
func KeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		pad := width - lipgloss.Width(p[0])
		b.WriteString(StyleDim.Render(p[0]) + strings.Repeat(" ", pad+colGap) + p[1] + "\n")
	}
	return b.String()
}
