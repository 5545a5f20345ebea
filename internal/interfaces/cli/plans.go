package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiscaldesk/rateations/pkg/client"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List and inspect installment plans",
	}

	cmd.AddCommand(newPlansListCmd())
	cmd.AddCommand(newPlansGetCmd())
	cmd.AddCommand(newPlansInstallmentsCmd())
	cmd.AddCommand(newPlansCreateCmd())

	return cmd
}

// planListResult adapts a plan page for table output.
type planListResult struct {
	client.PlanList
}

func (r planListResult) TableHeaders() []string {
	return []string{"ID", "NUMBER", "KIND", "STATUS", "TOTAL", "OWNER"}
}

func (r planListResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Plans))
	for _, p := range r.Plans {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Number,
			p.Kind,
			p.Status,
			formatCents(p.TotalCents),
			p.OwnerID,
		})
	}
	return rows
}

func newPlansListCmd() *cobra.Command {
	var (
		kind   string
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the caller's plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			list, err := cliCtx.Client.Plans().List(ctx, client.ListOptions{
				Kind:   kind,
				Status: status,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, planListResult{*list})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (WITHHOLDING/PORTAL/AMNESTY_BASE/AMNESTY_READMISSION)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (ACTIVE/LATE/COMPLETED/DECAYED/INTERRUPTED/EXTINGUISHED)")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")

	return cmd
}

func newPlansGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <plan-id>",
		Short: "Show one plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			p, err := cliCtx.Client.Plans().Get(ctx, planID)
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
}

// installmentsResult adapts resolved installments for table output.
type installmentsResult struct {
	Installments []client.Installment `json:"installments"`
}

func (r installmentsResult) TableHeaders() []string {
	return []string{"SEQ", "DUE", "AMOUNT", "STATUS", "OVERDUE DAYS"}
}

func (r installmentsResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Installments))
	for _, inst := range r.Installments {
		due := ""
		if inst.DueDate != nil {
			due = inst.DueDate.Format("2006-01-02")
		}
		overdue := ""
		if inst.DaysOverdue > 0 {
			overdue = strconv.Itoa(inst.DaysOverdue)
		}
		rows = append(rows, []string{
			strconv.Itoa(inst.Seq),
			due,
			formatCents(inst.AmountCents),
			inst.EffectiveStatus,
			overdue,
		})
	}
	return rows
}

func newPlansInstallmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "installments <plan-id>",
		Short: "List a plan's installments with resolved states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			installments, err := cliCtx.Client.Plans().Installments(ctx, planID)
			if err != nil {
				return err
			}
			return PrintResult(cmd, installmentsResult{Installments: installments})
		},
	}
}

func newPlansCreateCmd() *cobra.Command {
	var (
		number      string
		kind        string
		taxpayerID  string
		note        string
		firstDue    string
		frequency   string
		count       int
		amountCents int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan with a generated installment schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := time.Parse("2006-01-02", firstDue)
			if err != nil {
				return fmt.Errorf("invalid --first-due %q, expected YYYY-MM-DD", firstDue)
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			created, err := cliCtx.Client.Plans().Create(ctx, client.CreatePlanRequest{
				Number:     number,
				Kind:       kind,
				TaxpayerID: taxpayerID,
				Note:       note,
				Schedule: &client.ScheduleSpec{
					FirstDue:    due,
					Frequency:   frequency,
					Count:       count,
					AmountCents: amountCents,
				},
			})
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("created plan %d (%s, %d installments, total %s)",
				created.Plan.ID, created.Plan.Number, len(created.Installments), formatCents(created.Plan.TotalCents)))
			return printJSON(cmd, created.Plan)
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "plan number (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "plan kind (required)")
	cmd.Flags().StringVar(&taxpayerID, "taxpayer", "", "taxpayer identifier")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	cmd.Flags().StringVar(&firstDue, "first-due", "", "first due date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&frequency, "frequency", "MONTHLY", "installment spacing (MONTHLY/BIMONTHLY/QUARTERLY)")
	cmd.Flags().IntVar(&count, "count", 0, "number of installments (required)")
	cmd.Flags().Int64Var(&amountCents, "amount-cents", 0, "amount per installment in cents (required)")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("first-due")
	_ = cmd.MarkFlagRequired("count")
	_ = cmd.MarkFlagRequired("amount-cents")

	return cmd
}

func parsePlanID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid plan id %q", arg)
	}
	return id, nil
}
