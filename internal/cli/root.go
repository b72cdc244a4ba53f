package cli

import (
	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/alexanderramin/ludo/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Fees    service.FeeService
	Trees   service.TreeService
	Members service.MemberService
	Import  service.ImportService

	// Schedules resolves schedule labels for display. Optional.
	Schedules ScheduleLookup

	Locale language.Tag

	// IsInteractive reports whether confirmations may prompt. Nil means
	// never prompt.
	IsInteractive func() bool
	// Confirm asks a yes/no question. Defaults to a huh confirm form.
	Confirm func(title, description string) (bool, error)
	// Page displays long output. Defaults to a scrolling viewport.
	Page func(title, content string) error
}

func (a *App) money() *formatter.Money {
	tag := a.Locale
	if tag == language.Und {
		tag = language.French
	}
	return formatter.NewMoney(tag)
}

// NewRootCmd creates the top-level "ludo" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ludo",
		Short:         "Membership fee calculator for a lending association",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newFeeCmd(app),
		newPaymentCmd(app),
		newTreeCmd(app),
		newConfigCmd(app),
		newMemberCmd(app),
	)

	return root
}
