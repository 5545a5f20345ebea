package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fiscaldesk/rateations/pkg/client"
)

func newKPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Read per-plan and portfolio KPI views",
	}

	cmd.AddCommand(newKPIPlanCmd())
	cmd.AddCommand(newKPIPortfolioCmd())

	return cmd
}

func newKPIPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <plan-id>",
		Short: "Show one plan's KPI aggregate",
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

			view, err := cliCtx.Client.Plans().KPI(ctx, planID)
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		},
	}
}

// portfolioResult adapts the portfolio rollup for table output: one row per
// plan plus a totals row when the server sent one.
type portfolioResult struct {
	client.PortfolioView
}

func (r portfolioResult) TableHeaders() []string {
	return []string{"PLAN", "KIND", "STATUS", "DUE", "PAID", "RESIDUAL", "OVERDUE", "AT RISK"}
}

func (r portfolioResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Plans)+1)
	for _, v := range r.Plans {
		atRisk := ""
		if (v.KPI.SkipBudget != nil && v.KPI.SkipBudget.AtRisk) ||
			(v.KPI.Recovery != nil && v.KPI.Recovery.AtRisk) {
			atRisk = "yes"
		}
		rows = append(rows, []string{
			v.Plan.Number,
			v.Plan.Kind,
			v.Plan.Status,
			formatCents(v.KPI.TotalDueCents),
			formatCents(v.KPI.TotalPaidCents),
			formatCents(v.KPI.ResidualCents),
			strconv.Itoa(v.KPI.OverdueCount),
			atRisk,
		})
	}
	if r.Totals != nil {
		rows = append(rows, []string{
			"TOTAL",
			"",
			"",
			formatCents(r.Totals.TotalDueCents),
			formatCents(r.Totals.TotalPaidCents),
			formatCents(r.Totals.ResidualCents),
			strconv.Itoa(r.Totals.OverdueCount),
			strconv.Itoa(r.Totals.AtRiskCount),
		})
	}
	return rows
}

func newKPIPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show the caller's portfolio rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			view, err := cliCtx.Client.Plans().PortfolioKPI(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, portfolioResult{*view})
		},
	}
}
