package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/retail-ledger/jobs"
)

func newIntegrityCommand(env Env, flags *rootFlags) *cobra.Command {
	var companyID, fiscalYearID int64
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Scan vouchers for entry pairs that do not balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Services == nil {
				return fmt.Errorf("services not configured")
			}
			ctx := cmd.Context()
			svc, err := env.Services(ctx)
			if err != nil {
				return err
			}
			if svc.Close != nil {
				defer svc.Close()
			}
			job := jobs.NewIntegrityJob(svc.Integrity, slog.New(slog.DiscardHandler), nil)
			violations, err := job.Run(ctx, jobs.IntegrityPayload{CompanyID: companyID, FiscalYearID: fiscalYearID})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.json {
				if err := json.NewEncoder(out).Encode(violations); err != nil {
					return err
				}
			} else {
				for _, v := range violations {
					fmt.Fprintf(out, "company=%d fiscal_year=%d %s bill=%d voucher=%d entries=%d debit=%s credit=%s kinds=%s\n",
						v.CompanyID, v.FiscalYearID, v.VoucherType, v.BillNumber, v.VoucherID, v.ActiveCount,
						v.Debit.StringFixed(2), v.Credit.StringFixed(2), strings.Join(v.Kinds, ","))
				}
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d vouchers out of balance", len(violations))
			}
			if !flags.json {
				fmt.Fprintln(out, "ledger balanced")
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "Company id, 0 for every company")
	cmd.Flags().Int64Var(&fiscalYearID, "fiscal-year", 0, "Fiscal year id, 0 for every year")
	return cmd
}
