package cmd

import (
	"context"
	"fmt"

	"github.com/Pjt727/timetable/data/timetable"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Adds one class",
	Long: `Adds one class on --date. Every field except campus, class type and
replacement is required`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := commandLogger(cmd, "add")
		date, _ := cmd.Flags().GetString("date")
		fields := classFieldsFromFlags(cmd)

		ctx := context.Background()
		store, backend, err := openStore(ctx, cmd, logger)
		if err != nil {
			logger.Error("Could not connect to store: ", err)
			return err
		}
		defer backend.Close()

		if err := store.AddClass(ctx, date, fields); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Class added successfully")
		return nil
	},
}

// only flags that were given become fields so validation can name the rest
func classFieldsFromFlags(cmd *cobra.Command) timetable.ClassFields {
	var fields timetable.ClassFields
	text := func(flag string, field **string) {
		if cmd.Flags().Changed(flag) {
			value, _ := cmd.Flags().GetString(flag)
			*field = &value
		}
	}
	flag := func(flag string, field **bool) {
		if cmd.Flags().Changed(flag) {
			value, _ := cmd.Flags().GetBool(flag)
			*field = &value
		}
	}
	text("module-code", &fields.ModuleCode)
	text("module-name", &fields.ModuleName)
	text("time", &fields.Time)
	text("location", &fields.Location)
	text("lecturer", &fields.Lecturer)
	flag("online", &fields.IsOnline)
	flag("replacement", &fields.IsReplacement)

	campus, _ := cmd.Flags().GetString("campus")
	classType, _ := cmd.Flags().GetString("class-type")
	return fields.
		WithOption(timetable.OptionCampus, campus).
		WithOption(timetable.OptionClassType, classType)
}

func init() {
	addCmd.Flags().String("date", "", "day of the class (YYYY-MM-DD)")
	addCmd.Flags().String("time", "", `time of the class e.i. "08:30 - 10:30"`)
	addCmd.Flags().String("module-code", "", "")
	addCmd.Flags().String("module-name", "", "")
	addCmd.Flags().String("location", "", "")
	addCmd.Flags().String("lecturer", "", "")
	addCmd.Flags().Bool("online", false, "the class is held online")
	addCmd.Flags().Bool("replacement", false, "the class replaces a cancelled one")
	addCmd.Flags().String("campus", "", "defaults to "+timetable.DefaultCampus)
	addCmd.Flags().String("class-type", "", "")
	rootCmd.AddCommand(addCmd)
}
