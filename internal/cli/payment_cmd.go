package cli

import (
	"fmt"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newPaymentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Inspect recorded payments",
	}
	cmd.AddCommand(
		newPaymentListCmd(app),
		newPaymentShowCmd(app),
	)
	return cmd
}

func newPaymentListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <member-id>",
		Short: "List a member's payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payments, err := app.Fees.ListPayments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPaymentList(payments, app.money()))
			return nil
		},
	}
}

func newPaymentShowCmd(app *App) *cobra.Command {
	var trace, page bool
	cmd := &cobra.Command{
		Use:   "show <payment-id>",
		Short: "Show a payment snapshot with its reductions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Fees.GetPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.show(cmd.OutOrStdout(), page, "Payment "+p.Reference,
				formatter.FormatPayment(p, app.money(), trace))
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "Show the stored evaluation trace")
	cmd.Flags().BoolVar(&page, "pager", false, "Scroll the output on an interactive terminal")
	return cmd
}
