package cli

import (
	"fmt"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the pricing configuration",
	}
	cmd.AddCommand(newConfigImportCmd(app))
	return cmd
}

func newConfigImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml|file.json>",
		Short: "Import brackets, schedules, rules, members and trees from a file",
		Long: `Import upserts every entity of the file in one transaction. A schedule's
tree is created when missing and rewritten when unlocked; a locked tree
aborts the import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Import.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success("imported %s", args[0]))
			fmt.Fprint(out, formatter.RenderTable([]string{"ENTITY", "COUNT"}, [][]string{
				{"commune groups", fmt.Sprint(res.CommuneGroups)},
				{"age brackets", fmt.Sprint(res.AgeBrackets)},
				{"schedules", fmt.Sprint(res.Schedules)},
				{"income configs", fmt.Sprint(res.IncomeConfigs)},
				{"legacy rules", fmt.Sprint(res.LegacyRules)},
				{"members", fmt.Sprint(res.Members)},
				{"decision trees", fmt.Sprint(res.Trees)},
			}))
			return nil
		},
	}
}
