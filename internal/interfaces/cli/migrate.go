package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fiscaldesk/rateations/pkg/client"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move debts between plans and manage cross-plan links",
	}

	cmd.AddCommand(newMigrateDebtsCmd())
	cmd.AddCommand(newMigrateRollbackCmd())
	cmd.AddCommand(newMigrateAttachCmd())
	cmd.AddCommand(newMigrateDetachCmd())
	cmd.AddCommand(newMigrateDecayCmd())

	return cmd
}

func newMigrateDebtsCmd() *cobra.Command {
	var (
		from    int64
		to      int64
		debtIDs []int64
		note    string
	)

	cmd := &cobra.Command{
		Use:   "debts",
		Short: "Migrate debts from a source plan into a readmission plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from <= 0 || to <= 0 {
				return fmt.Errorf("--from and --to are required")
			}
			if len(debtIDs) == 0 {
				return fmt.Errorf("--debt is required at least once")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Migrations().MigrateDebts(ctx, from, client.MigrateDebtsRequest{
				DebtIDs:      debtIDs,
				TargetPlanID: to,
				Note:         note,
			})
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("migrated %d debts to plan %d", res.Migrated, res.TargetPlanID))
			return nil
		},
	}

	cmd.Flags().Int64Var(&from, "from", 0, "source plan id")
	cmd.Flags().Int64Var(&to, "to", 0, "target readmission plan id")
	cmd.Flags().Int64SliceVar(&debtIDs, "debt", nil, "debt id to move (repeatable)")
	cmd.Flags().StringVar(&note, "note", "", "migration note")

	return cmd
}

func newMigrateRollbackCmd() *cobra.Command {
	var (
		from    int64
		debtIDs []int64
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back a previous debt migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from <= 0 {
				return fmt.Errorf("--from is required")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			if err := cliCtx.Client.Migrations().RollbackMigration(ctx, from, client.RollbackRequest{
				DebtIDs: debtIDs,
			}); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back migration on plan %d", from))
			return nil
		},
	}

	cmd.Flags().Int64Var(&from, "from", 0, "source plan id the debts were migrated off")
	cmd.Flags().Int64SliceVar(&debtIDs, "debt", nil, "debt id to restore (repeatable; default: all)")

	return cmd
}

func newMigrateAttachCmd() *cobra.Command {
	var (
		portal  int64
		targets []int64
		note    string
	)

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Interrupt a portal plan and link it to readmission targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if portal <= 0 {
				return fmt.Errorf("--portal is required")
			}
			if len(targets) == 0 {
				return fmt.Errorf("--target is required at least once")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			links, err := cliCtx.Client.Migrations().Attach(ctx, portal, client.AttachRequest{
				TargetPlanIDs: targets,
				Note:          note,
			})
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("attached plan %d to %d targets", portal, len(links)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&portal, "portal", 0, "portal plan id to interrupt")
	cmd.Flags().Int64SliceVar(&targets, "target", nil, "readmission target plan id (repeatable)")
	cmd.Flags().StringVar(&note, "note", "", "interruption note")

	return cmd
}

func newMigrateDetachCmd() *cobra.Command {
	var (
		portal  int64
		targets []int64
	)

	cmd := &cobra.Command{
		Use:   "detach",
		Short: "Remove reattachment links from a portal plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if portal <= 0 {
				return fmt.Errorf("--portal is required")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Migrations().Detach(ctx, portal, client.DetachRequest{
				TargetPlanIDs: targets,
			})
			if err != nil {
				return err
			}
			if res.Unlocked {
				PrintSuccess(cmd, fmt.Sprintf("plan %d detached and restored to ACTIVE", portal))
			} else {
				PrintSuccess(cmd, fmt.Sprintf("plan %d partially detached, interruption kept", portal))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&portal, "portal", 0, "portal plan id")
	cmd.Flags().Int64SliceVar(&targets, "target", nil, "target plan id to unlink (repeatable; default: all)")

	return cmd
}

func newMigrateDecayCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "decay <plan-id>",
		Short: "Confirm decay of a withholding plan",
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

			if err := cliCtx.Client.Migrations().ConfirmDecay(ctx, planID, force); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("plan %d marked DECADUTA", planID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the eligibility window check")

	return cmd
}
