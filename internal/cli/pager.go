package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// pagerModel scrolls long output (trees, payment traces) in the alternate
// screen.
type pagerModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
	quit     key.Binding
}

func newPagerModel(title, content string) pagerModel {
	return pagerModel{
		title:   title,
		content: content,
		quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
	}
}

func (m pagerModel) Init() tea.Cmd { return nil }

func (m pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		// header and footer take one line each
		height := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	if !m.ready {
		return ""
	}
	var b strings.Builder
	b.WriteString(formatter.Bold(m.title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(scrollIndicator(m.viewport) + formatter.Dim("  q quit"))
	return b.String()
}

func scrollIndicator(vp viewport.Model) string {
	if vp.AtTop() {
		return formatter.Dim("[TOP]")
	}
	if vp.AtBottom() {
		return formatter.Dim("[END]")
	}
	return formatter.Dim(fmt.Sprintf("[%d%%]", int(vp.ScrollPercent()*100)))
}

func runPager(title, content string) error {
	_, err := tea.NewProgram(newPagerModel(title, content), tea.WithAltScreen()).Run()
	return err
}

// show prints content, or pages it when requested on an interactive
// terminal.
func (a *App) show(w io.Writer, page bool, title, content string) error {
	if !page || a.IsInteractive == nil || !a.IsInteractive() {
		_, err := fmt.Fprint(w, content)
		return err
	}
	pager := a.Page
	if pager == nil {
		pager = runPager
	}
	return pager(title, content)
}
