package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fiscaldesk/rateations/pkg/client"
)

func newSurchargeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surcharge",
		Short: "Preview and manage surcharge links of withholding plans",
	}

	cmd.AddCommand(newSurchargePreviewCmd())
	cmd.AddCommand(newSurchargeLinkCmd())
	cmd.AddCommand(newSurchargeUnlinkCmd())

	return cmd
}

func newSurchargePreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <withholding-plan-id> <portal-plan-id>",
		Short: "Quote the surcharge without writing anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			withholdingID, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			portalID, err := parsePlanID(args[1])
			if err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			quote, err := cliCtx.Client.Migrations().PreviewSurcharge(ctx, withholdingID, portalID)
			if err != nil {
				return err
			}
			return printJSON(cmd, quote)
		},
	}
}

func newSurchargeLinkCmd() *cobra.Command {
	var (
		portal int64
		reason string
	)

	cmd := &cobra.Command{
		Use:   "link <withholding-plan-id>",
		Short: "Fold a decayed withholding plan into a portal plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withholdingID, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			if portal <= 0 {
				return fmt.Errorf("--portal is required")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Migrations().LinkSurcharge(ctx, withholdingID, client.LinkSurchargeRequest{
				PortalPlanID: portal,
				Reason:       reason,
			})
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("surcharge link %s: %s", res.Action, formatCents(res.SurchargeCents)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&portal, "portal", 0, "portal plan id to absorb the residual")
	cmd.Flags().StringVar(&reason, "reason", "", "link reason")

	return cmd
}

func newSurchargeUnlinkCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "unlink <withholding-plan-id>",
		Short: "Remove a surcharge link and restore the withholding plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withholdingID, err := parsePlanID(args[0])
			if err != nil {
				return err
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Migrations().UnlinkSurcharge(ctx, withholdingID, reason)
			if err != nil {
				return err
			}
			if res.Restored {
				PrintSuccess(cmd, fmt.Sprintf("plan %d restored to ACTIVE", withholdingID))
			} else {
				PrintSuccess(cmd, fmt.Sprintf("surcharge link removed from plan %d", withholdingID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "unlink reason")

	return cmd
}
