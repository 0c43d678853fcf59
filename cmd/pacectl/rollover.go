package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rollpace/rollpace-backend/internal/cli"
	"github.com/spf13/cobra"
)

var rolloverCmd = &cobra.Command{
	Use:   "rollover [YYYY-MM]",
	Short: "Balances each category carries into a month",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRollover,
}

func init() {
	rootCmd.AddCommand(rolloverCmd)
}

func runRollover(cmd *cobra.Command, args []string) error {
	month, err := monthArg(args)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	rollover, err := s.engine.Rollover.ResolveRollover(cmd.Context(), s.userID, month)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]interface{}{"month": month.String(), "rollover": rollover})
	}

	ids := make([]int, 0, len(rollover))
	for id := range rollover {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{"#" + strconv.Itoa(id), cli.FormatSigned(rollover[int32(id)])})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("ROLLOVER INTO  " + month.String()))
	fmt.Println()
	if len(rows) == 0 {
		fmt.Println("  Nothing carries into this month.")
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Carried"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
