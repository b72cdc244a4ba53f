package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newTreeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Manage decision trees",
	}
	cmd.AddCommand(
		newTreeCreateCmd(app),
		newTreeShowCmd(app),
		newTreeUpdateCmd(app),
		newTreeVersionsCmd(app),
		newTreeLockCmd(app),
		newTreeDuplicateCmd(app),
	)
	return cmd
}

func newTreeCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <schedule-id>",
		Short: "Create an empty decision tree for a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.Trees.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success("created tree %s (v%d)", t.ID, t.Version))
			return nil
		},
	}
}

func newTreeShowCmd(app *App) *cobra.Command {
	var (
		id   string
		page bool
	)
	cmd := &cobra.Command{
		Use:   "show [schedule-id]",
		Short: "Show the current tree of a schedule, or a specific version with --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				t   *domain.DecisionTree
				err error
			)
			switch {
			case id != "":
				t, err = app.Trees.Get(ctx, id)
			case len(args) == 1:
				t, err = app.Trees.GetCurrent(ctx, args[0])
			default:
				return fmt.Errorf("either a schedule ID or --id is required")
			}
			if err != nil {
				return err
			}
			label := app.scheduleLabel(ctx, t.ScheduleID)
			return app.show(cmd.OutOrStdout(), page, fmt.Sprintf("%s v%d", label, t.Version),
				formatter.FormatDecisionTree(t, label))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Tree ID")
	cmd.Flags().BoolVar(&page, "pager", false, "Scroll the output on an interactive terminal")
	return cmd
}

func newTreeUpdateCmd(app *App) *cobra.Command {
	var file, mode string
	cmd := &cobra.Command{
		Use:   "update <tree-id> --file nodes.json",
		Short: "Replace the nodes of an unlocked tree",
		Long: `The file holds either a JSON array of nodes or an object with "nodes"
and an optional "display_mode". --mode wins over the file's display mode.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			nodes, fileMode, err := parseNodesDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if mode == "" {
				mode = fileMode
			}

			t, err := app.Trees.Update(cmd.Context(), args[0], nodes, domain.DisplayMode(mode))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success("updated tree %s (%d nodes, %s)", t.ID, len(t.Nodes), t.DisplayMode))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the tree nodes")
	cmd.Flags().StringVar(&mode, "mode", "", "Display mode: cumulative or detailed")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseNodesDocument(data []byte) ([]domain.DecisionNode, string, error) {
	if !gjson.ValidBytes(data) {
		return nil, "", fmt.Errorf("not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	raw, mode := doc.Raw, ""
	if doc.IsObject() {
		nodes := doc.Get("nodes")
		if !nodes.IsArray() {
			return nil, "", fmt.Errorf(`expected a "nodes" array`)
		}
		raw, mode = nodes.Raw, doc.Get("display_mode").String()
	} else if !doc.IsArray() {
		return nil, "", fmt.Errorf("expected a node array or an object with nodes")
	}

	var nodes []domain.DecisionNode
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		return nil, "", fmt.Errorf("decoding nodes: %w", err)
	}
	return nodes, mode, nil
}

func newTreeVersionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <schedule-id>",
		Short: "List every tree version of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trees, err := app.Trees.ListVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTreeVersions(trees))
			return nil
		},
	}
}

func newTreeLockCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "lock <tree-id>",
		Short: "Freeze a tree; it can only be duplicated afterwards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ok, err := app.confirm(out, yes, "Lock tree "+formatter.TruncID(args[0])+"?",
				"A locked tree cannot be edited again.")
			if err != nil || !ok {
				return err
			}

			changed, err := app.Trees.Lock(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(out, "Tree %s was already locked.\n", args[0])
				return nil
			}
			fmt.Fprintln(out, formatter.Success("locked tree %s", args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newTreeDuplicateCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "duplicate <tree-id>",
		Short: "Start a new editable version of a tree",
		Long: `Duplicating a locked tree creates a new current version with fresh node
IDs; the source version stays frozen for the payments that used it.
Duplicating an unlocked tree only bumps its version number.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ok, err := app.confirm(out, yes, "Duplicate tree "+formatter.TruncID(args[0])+"?",
				"New payments will use the new version.")
			if err != nil || !ok {
				return err
			}

			t, err := app.Trees.Duplicate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatter.Success("tree %s is now v%d", t.ID, t.Version))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
