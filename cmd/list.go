package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/Pjt727/timetable/data/timetable"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [date]",
	Short: "Prints the timetable",
	Long: `Prints every week in order, or only the week containing date
(YYYY-MM-DD)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := commandLogger(cmd, "list")
		ctx := context.Background()
		store, backend, err := openStore(ctx, cmd, logger)
		if err != nil {
			logger.Error("Could not connect to store: ", err)
			return err
		}
		defer backend.Close()

		var weeks []timetable.Week
		if len(args) == 1 {
			week, err := store.Week(ctx, args[0])
			if err != nil {
				return err
			}
			weeks = []timetable.Week{week}
		} else if weeks, err = store.ListWeeks(ctx); err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(weeks)
		}
		printWeeks(cmd, weeks)
		return nil
	},
}

func printWeeks(cmd *cobra.Command, weeks []timetable.Week) {
	out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer out.Flush()
	for _, week := range weeks {
		fmt.Fprintf(out, "Week of %s\n", week.WeekStartDate)
		for _, day := range week.Days {
			fmt.Fprintf(out, "  %s\n", day.Date)
			for _, c := range day.Classes {
				fmt.Fprintf(out, "    %s\t%s\t%s\t%s\t%s\t%s\n",
					c.Time, c.ModuleCode, c.ClassType, c.Location, c.Campus, c.Lecturer)
			}
		}
	}
}

func init() {
	listCmd.Flags().Bool("json", false, "print the weeks as json")
	rootCmd.AddCommand(listCmd)
}
