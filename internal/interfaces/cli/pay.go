package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiscaldesk/rateations/pkg/client"
)

const dateLayout = "2006-01-02"

func newPayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record, revert, and postpone installment payments",
	}

	cmd.AddCommand(newPayMarkCmd())
	cmd.AddCommand(newPayUnmarkCmd())
	cmd.AddCommand(newPayPostponeCmd())

	return cmd
}

func newPayMarkCmd() *cobra.Command {
	var (
		planID        int64
		seq           int
		date          string
		mode          string
		penaltyCents  int64
		interestCents int64
	)

	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Record a payment against one installment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if planID <= 0 || seq <= 0 {
				return fmt.Errorf("--plan and --seq are required")
			}
			paidDate := time.Now()
			if date != "" {
				var err error
				paidDate, err = time.Parse(dateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
				}
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			if err := cliCtx.Client.Migrations().MarkPaid(ctx, planID, client.MarkPaidRequest{
				Seq:           seq,
				PaidDate:      paidDate,
				Mode:          mode,
				PenaltyCents:  penaltyCents,
				InterestCents: interestCents,
			}); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("installment %d/%d marked paid", planID, seq))
			return nil
		},
	}

	cmd.Flags().Int64Var(&planID, "plan", 0, "plan id")
	cmd.Flags().IntVar(&seq, "seq", 0, "installment sequence number")
	cmd.Flags().StringVar(&date, "date", "", "payment date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&mode, "mode", "", "payment mode (ORDINARY/RAVVEDIMENTO)")
	cmd.Flags().Int64Var(&penaltyCents, "penalty-cents", 0, "penalty amount in cents")
	cmd.Flags().Int64Var(&interestCents, "interest-cents", 0, "interest amount in cents")

	return cmd
}

func newPayUnmarkCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "unmark <installment-id>",
		Short: "Revert a recorded payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			installmentID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || installmentID <= 0 {
				return fmt.Errorf("invalid installment id %q", args[0])
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			if err := cliCtx.Client.Migrations().UnmarkPaid(ctx, installmentID, reason); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("installment %d reverted to unpaid", installmentID))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the payment is reverted")

	return cmd
}

func newPayPostponeCmd() *cobra.Command {
	var (
		planID int64
		seq    int
		newDue string
	)

	cmd := &cobra.Command{
		Use:   "postpone",
		Short: "Move an unpaid installment's due date forward",
		RunE: func(cmd *cobra.Command, args []string) error {
			if planID <= 0 || seq <= 0 {
				return fmt.Errorf("--plan and --seq are required")
			}
			due, err := time.Parse(dateLayout, newDue)
			if err != nil {
				return fmt.Errorf("invalid --new-due %q, expected YYYY-MM-DD", newDue)
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			if err := cliCtx.Client.Migrations().Postpone(ctx, client.PostponeRequest{
				PlanID: planID,
				Seq:    seq,
				NewDue: due,
			}); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("installment %d/%d postponed to %s", planID, seq, newDue))
			return nil
		},
	}

	cmd.Flags().Int64Var(&planID, "plan", 0, "plan id")
	cmd.Flags().IntVar(&seq, "seq", 0, "installment sequence number")
	cmd.Flags().StringVar(&newDue, "new-due", "", "new due date as YYYY-MM-DD")

	return cmd
}
