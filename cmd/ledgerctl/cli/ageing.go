package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/reports"
)

func newAgeingCommand(env Env, flags *rootFlags) *cobra.Command {
	var companyID, fiscalYearID int64
	var asOf, lang string
	cmd := &cobra.Command{
		Use:   "ageing",
		Short: "Print the debtor and creditor ageing of a company",
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
			tenant, err := svc.Tenants.Resolve(ctx, companyID, fiscalYearID)
			if err != nil {
				return err
			}
			var reference *time.Time
			if asOf != "" {
				cal, err := tenant.CalendarSystem()
				if err != nil {
					return err
				}
				date, err := cal.Parse(asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				reference = &date
			}
			report, err := svc.Reports.AgeingReport(ctx, tenant, reference)
			if err != nil {
				return err
			}
			if flags.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return fmt.Errorf("--lang: %w", err)
			}
			printAgeing(cmd.OutOrStdout(), report, reports.NewFormatter(tag))
			return nil
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "Company id")
	cmd.Flags().Int64Var(&fiscalYearID, "fiscal-year", 0, "Fiscal year id")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date in the company calendar, default today")
	cmd.Flags().StringVar(&lang, "lang", "en", "Language tag used to format amounts")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("fiscal-year")
	return cmd
}

func printAgeing(w io.Writer, r reports.AgeingReport, f *reports.Formatter) {
	const row = "%-28s %14s %14s %14s %14s %14s %16s\n"
	fmt.Fprintf(w, "AGEING company=%d fiscal_year=%d as_of=%s\n", r.CompanyID, r.FiscalYearID, r.LocalDate)
	fmt.Fprintf(w, row, "Account", "0-30", "30-60", "60-90", "90-120", "Over 120", "Net")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, a := range r.PerAccount {
		b := a.Buckets
		fmt.Fprintf(w, row, truncate(a.AccountName, 28), f.Amount(b.Days0To30), f.Amount(b.Days30To60), f.Amount(b.Days60To90),
			f.Amount(b.Days90To120), f.Amount(b.Over120), f.Balance(a.NetBalance))
	}
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, t := range []struct {
		label string
		b     ledger.Buckets
	}{{"Receivable", r.Receivable}, {"Payable", r.Payable}, {"Net", r.Net}} {
		fmt.Fprintf(w, row, t.label, f.Amount(t.b.Days0To30), f.Amount(t.b.Days30To60), f.Amount(t.b.Days60To90),
			f.Amount(t.b.Days90To120), f.Amount(t.b.Over120), f.Balance(t.b.Total))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
