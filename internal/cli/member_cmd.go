package cli

import (
	"fmt"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newMemberCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Inspect members",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List members",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				members, err := app.Members.List(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMemberList(members))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <member-id>",
			Short: "Show a member's pricing facts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := app.Members.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMember(m))
				return nil
			},
		},
	)
	return cmd
}
