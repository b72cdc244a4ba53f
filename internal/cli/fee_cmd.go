package cli

import (
	"fmt"

	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/alexanderramin/ludo/internal/service"
	"github.com/spf13/cobra"
)

func newFeeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Compute and record membership fees",
	}
	cmd.AddCommand(
		newFeeSimulateCmd(app),
		newFeeCommitCmd(app),
	)
	return cmd
}

func newFeeSimulateCmd(app *App) *cobra.Command {
	var (
		date      dateValue
		structure string
		trace     bool
	)

	cmd := &cobra.Command{
		Use:   "simulate <member-id> <schedule-id>",
		Short: "Show the fee a member would pay, without recording anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := service.SimulateOptions{PaymentDate: date.Time(), StructureID: structure}
			q, err := app.Fees.Simulate(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatQuote(q.Member, q.Schedule, q.Quote, app.money(), trace))
			return nil
		},
	}

	cmd.Flags().Var(&date, "date", "Payment date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&structure, "structure", "", "Structure ID for scoped age brackets")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show the evaluation trace")

	return cmd
}

func newFeeCommitCmd(app *App) *cobra.Command {
	var (
		date, periodStart, periodEnd dateValue
		method, reference, structure string
		expectVersion                int
		trace                        bool
	)

	cmd := &cobra.Command{
		Use:   "commit <member-id> <schedule-id>",
		Short: "Record a payment with its full fee computation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := service.PaymentFields{
				PaymentDate: date.Time(),
				PeriodStart: periodStart.Ptr(),
				PeriodEnd:   periodEnd.Ptr(),
				Method:      method,
				Reference:   reference,
				StructureID: structure,
			}
			if cmd.Flags().Changed("expect-version") {
				fields.ExpectedTreeVersion = &expectVersion
			}

			p, err := app.Fees.Commit(cmd.Context(), args[0], args[1], fields)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success("payment %s recorded", p.Reference))
			fmt.Fprintln(out)
			fmt.Fprint(out, formatter.FormatPayment(p, app.money(), trace))
			return nil
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "Payment reference, unique per payment")
	cmd.Flags().StringVar(&method, "method", "", "Payment method (default "+service.DefaultPaymentMethod+")")
	cmd.Flags().Var(&date, "date", "Payment date (YYYY-MM-DD, default today)")
	cmd.Flags().Var(&periodStart, "period-start", "Membership period start (default payment date)")
	cmd.Flags().Var(&periodEnd, "period-end", "Membership period end (default start + schedule duration)")
	cmd.Flags().StringVar(&structure, "structure", "", "Structure ID for scoped age brackets")
	cmd.Flags().IntVar(&expectVersion, "expect-version", 0, "Fail unless the current decision tree has this version")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show the evaluation trace")
	_ = cmd.MarkFlagRequired("reference")

	return cmd
}
