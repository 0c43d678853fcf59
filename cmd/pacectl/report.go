package main

import (
	"fmt"
	"strconv"

	"github.com/rollpace/rollpace-backend/internal/cli"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [YYYY-MM]",
	Short: "Monthly budget report with rollover and pacing",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	month, err := monthArg(args)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.engine.Reports.GetMonthlyReport(cmd.Context(), s.userID, month)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(report)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("BUDGET REPORT  " + month.String()))
	fmt.Println()
	fmt.Print(cli.RenderTable(reportTable(report)))

	if report.Pacing != nil && report.Pacing.Applicable {
		fmt.Printf("\n  %s through the month, %s\n",
			cli.FormatPercent(report.Pacing.PercentThroughMonth),
			cli.FormatPacing(report.Pacing.PacingDifference))
	}
	for _, w := range report.Warnings {
		fmt.Printf("\n  warning: %s\n", w)
	}
	fmt.Println()
	return nil
}

func reportTable(report *domain.MonthlyReport) cli.Table {
	rows := make([][]string, 0, len(report.Categories)+2)
	for _, line := range report.Categories {
		name := line.CategoryName
		if name == "" {
			name = "#" + strconv.Itoa(int(line.CategoryID))
		}
		rows = append(rows, []string{
			name,
			cli.FormatMoney(line.BaseBudget),
			cli.FormatSigned(line.AppliedRollover),
			cli.FormatMoney(line.NetSpend),
			cli.FormatSigned(line.Remaining),
			cli.FormatPercent(line.PercentageUsed),
		})
	}

	t := report.Totals
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		"TOTAL",
		cli.FormatMoney(t.BaseBudget),
		cli.FormatSigned(t.TotalRollover),
		cli.FormatMoney(t.TotalSpent),
		cli.FormatSigned(t.Remaining),
		cli.FormatPercent(t.PercentageUsed),
	})

	return cli.Table{
		Headers: []string{"Category", "Budget", "Rollover", "Spent", "Remaining", "Used"},
		Rows:    rows,
	}
}
