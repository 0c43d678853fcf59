package main

import (
	"fmt"

	"github.com/rollpace/rollpace-backend/internal/cli"
	"github.com/spf13/cobra"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Today's budget digest",
	Args:  cobra.NoArgs,
	RunE:  runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	digest, err := s.engine.Digests.GetDigest(cmd.Context(), s.userID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(digest)
	}

	p := digest.Progress
	fmt.Println()
	fmt.Println(cli.RenderTitle("DIGEST  " + digest.Date.Format("Mon 2 Jan 2006")))
	fmt.Println()
	fmt.Printf("  Spent %s of %s (%s), %d days left\n",
		cli.FormatMoney(p.TotalSpent), cli.FormatMoney(p.TotalBudget),
		cli.FormatPercent(p.PercentageUsed), digest.DaysRemainingInMonth)
	fmt.Printf("  %s\n\n", cli.FormatPacing(p.PacingDifference))

	rows := make([][]string, 0, len(digest.Categories))
	for _, c := range digest.Categories {
		rows = append(rows, []string{c.CategoryName, cli.FormatMoney(c.Spent), cli.FormatMoney(c.BudgetAmount), cli.FormatSigned(c.Remaining)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Category",
		Headers: []string{"Category", "Spent", "Budget", "Remaining"},
		Rows:    rows,
	}))

	if len(digest.RecentTransactions) > 0 {
		recent := make([][]string, 0, len(digest.RecentTransactions))
		for _, tx := range digest.RecentTransactions {
			recent = append(recent, []string{tx.Description, string(tx.Direction), cli.FormatMoney(tx.Amount)})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Recent",
			Headers: []string{"Description", "Type", "Amount"},
			Rows:    recent,
		}))
	}
	fmt.Println()
	return nil
}
