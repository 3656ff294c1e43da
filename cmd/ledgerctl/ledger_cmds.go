package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [customer name]",
	Short: "Show the remaining balance of one customer, or of every customer",
	Example: `  ledgerctl balance
  ledgerctl balance "Awa Traoré"
  ledgerctl balance --owing`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalance,
}

var historyCmd = &cobra.Command{
	Use:   "history <customer name>",
	Short: "List the postings of a customer, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute every ledger from its history and report mismatches",
	Long: `verify recomputes TotalDebt and RemainingBalance from each posting
history. It exits non-zero when any ledger disagrees with its history.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	balanceCmd.Flags().Bool("owing", false, "only list customers with a positive balance")
}

func runBalance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		balance := s.ledgers.Balance(ctx, args[0])
		if jsonOutput {
			return printJSON(out, map[string]any{
				"customer_name":     ledger.NormalizeCustomerName(args[0]),
				"remaining_balance": balance,
			})
		}
		_, err := fmt.Fprintf(out, "%s\t%s\n", ledger.NormalizeCustomerName(args[0]), balance.StringFixed(2))
		return err
	}

	owing, _ := cmd.Flags().GetBool("owing")
	records := s.ledgers.List(ctx)
	summaries := make([]ledgerapp.LedgerSummaryResponse, 0, len(records))
	for _, r := range records {
		if owing && !r.RemainingBalance.IsPositive() {
			continue
		}
		summaries = append(summaries, ledgerapp.ToLedgerSummaryResponse(r))
	}
	if jsonOutput {
		return printJSON(out, summaries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tTOTAL DEBT\tBALANCE")
	for _, sm := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sm.CustomerName, sm.TotalDebt.StringFixed(2), sm.RemainingBalance.StringFixed(2))
	}
	return tw.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	record, err := s.ledgers.GetByName(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, ledgerapp.ToLedgerResponse(record))
	}

	fmt.Fprintf(out, "%s  debt %s  balance %s\n\n", record.CustomerName,
		record.TotalDebt.StringFixed(2), record.RemainingBalance.StringFixed(2))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tKIND\tAMOUNT\tSTATUS\tDESCRIPTION")
	for _, p := range record.History {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Date.Format("2006-01-02 15:04"), p.Type, p.Kind, p.Amount.StringFixed(2), p.Status, p.Description)
	}
	return tw.Flush()
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	failures := s.ledgers.VerifyAll(ctx)
	checked := len(s.ledgers.List(ctx))

	lines := make([]string, 0, len(failures))
	for id, ferr := range failures {
		lines = append(lines, fmt.Sprintf("%s: %v", id, ferr))
	}
	sort.Strings(lines)

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, map[string]any{"checked": checked, "inconsistent": lines}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%d ledgers checked, %d inconsistent\n", checked, len(lines))
		if len(lines) > 0 {
			fmt.Fprintln(out, strings.Join(lines, "\n"))
		}
	}
	if len(failures) > 0 {
		return errors.New("ledger verification failed")
	}
	return nil
}
