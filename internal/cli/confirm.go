package cli

import (
	"fmt"
	"io"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

func ludoHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

func huhConfirm(title, description string) (bool, error) {
	ok := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(ludoHuhTheme()).WithShowHelp(false)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// confirm asks before an irreversible action unless yes is set or the
// terminal is not interactive. It returns false when the user declined,
// after telling them so on w.
func (a *App) confirm(w io.Writer, yes bool, title, description string) (bool, error) {
	if yes || a.IsInteractive == nil || !a.IsInteractive() {
		return true, nil
	}
	ask := a.Confirm
	if ask == nil {
		ask = huhConfirm
	}
	ok, err := ask(title, description)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(w, formatter.Dim("Cancelled."))
	}
	return ok, nil
}
