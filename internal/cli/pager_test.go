package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longContent(lines int) string {
	var b strings.Builder
	for i := range lines {
		fmt.Fprintf(&b, "line %02d\n", i)
	}
	return b.String()
}

func TestPagerModel_SizesThenScrolls(t *testing.T) {
	m := newPagerModel("Trace", longContent(50))
	assert.Empty(t, m.View(), "nothing to draw before the first size")

	model, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	m = model.(pagerModel)
	require.True(t, m.ready)
	assert.Equal(t, 10, m.viewport.Height)
	assert.Contains(t, m.View(), "line 00")
	assert.Contains(t, m.View(), "[TOP]")

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	m = model.(pagerModel)
	assert.False(t, m.viewport.AtTop())
	assert.NotContains(t, m.View(), "line 00")

	model, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	m = model.(pagerModel)
	assert.Equal(t, 18, m.viewport.Height)
}

func TestPagerModel_QuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := newPagerModel("x", "y").Update(msg)
		require.NotNil(t, cmd, msg.String())
		assert.Equal(t, tea.Quit(), cmd(), msg.String())
	}
}

func TestAppShow_PagesOnlyWhenInteractive(t *testing.T) {
	var paged []string
	app := &App{Page: func(title, content string) error {
		paged = append(paged, title)
		return nil
	}}

	var out bytes.Buffer
	require.NoError(t, app.show(&out, true, "T", "body\n"))
	assert.Equal(t, "body\n", out.String(), "no terminal, plain output")
	assert.Empty(t, paged)

	app.IsInteractive = func() bool { return true }
	out.Reset()
	require.NoError(t, app.show(&out, false, "T", "body\n"))
	assert.Equal(t, "body\n", out.String())

	out.Reset()
	require.NoError(t, app.show(&out, true, "T", "body\n"))
	assert.Empty(t, out.String())
	assert.Equal(t, []string{"T"}, paged)
}

func TestTreeShowCmd_Pager(t *testing.T) {
	app := seededApp(t)
	app.IsInteractive = func() bool { return true }
	var title, content string
	app.Page = func(ti, c string) error {
		title, content = ti, c
		return nil
	}

	_, err := executeCmd(t, app, "tree", "show", "s2025", "--pager")
	require.NoError(t, err)
	assert.Equal(t, "2025-2026 v1", title)
	assert.Contains(t, content, "JEUNE")
}
