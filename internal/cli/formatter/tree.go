package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ItemState colors a tree line.
type ItemState int

const (
	ItemPlain ItemState = iota
	ItemSelected
	ItemRejected
	ItemError
	ItemSkipped
)

// TreeItem is a single line in a tree display.
type TreeItem struct {
	Title  string
	Level  int
	IsLast bool
	State  ItemState
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
)

// RenderTree renders items as an indented tree with box-drawing connectors
// and right-aligned detail badges.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type line struct {
		content string
		badge   string
	}
	lines := make([]line, len(items))
	widest := 0

	for i, item := range items {
		var prefix string
		if item.Level > 0 {
			prefix = strings.Repeat(treePipe, item.Level-1)
			if item.IsLast {
				prefix += treeCorner
			} else {
				prefix += treeBranch
			}
		}

		title := item.Title
		switch item.State {
		case ItemSelected:
			title = StyleApplied.Render("✔ ") + StyleBold.Render(title)
		case ItemRejected:
			title = Dim("· " + title)
		case ItemError:
			title = StyleRejected.Render("✖ " + title)
		case ItemSkipped:
			title = StyleSkipped.Render("⊘ " + title)
		}

		lines[i].content = StyleDim.Render(prefix) + title
		if item.Detail != "" {
			lines[i].badge = StyleAmount.Render("[ " + item.Detail + " ]")
		}
		widest = max(widest, lipgloss.Width(lines[i].content))
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.content)
		if l.badge != "" {
			b.WriteString(strings.Repeat(" ", widest-lipgloss.Width(l.content)) + "  " + l.badge)
		}
		b.WriteString("\n")
	}
	return b.String()
}
