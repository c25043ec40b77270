package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/retail-ledger/jobs"
)

const (
	jobIntegrity = "integrity"
	jobWarmup    = "ageing-warmup"
)

func newJobsCommand(env Env, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}

	var companyID, fiscalYearID int64
	trigger := &cobra.Command{
		Use:       "trigger {integrity|ageing-warmup}",
		Short:     "Enqueue a job with an optional company scope",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{jobIntegrity, jobWarmup},
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Jobs == nil {
				return fmt.Errorf("jobs client not configured")
			}
			client, err := env.Jobs(flags.redisAddr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			switch args[0] {
			case jobIntegrity:
				info, err := client.EnqueueIntegrity(ctx, jobs.IntegrityPayload{CompanyID: companyID, FiscalYearID: fiscalYearID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			case jobWarmup:
				info, err := client.EnqueueWarmup(ctx, jobs.WarmupPayload{CompanyID: companyID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			}
			return nil
		},
	}
	trigger.Flags().Int64Var(&companyID, "company", 0, "Company id, 0 for every company")
	trigger.Flags().Int64Var(&fiscalYearID, "fiscal-year", 0, "Fiscal year id for the integrity scan, 0 for every year")
	cmd.AddCommand(trigger)
	return cmd
}
