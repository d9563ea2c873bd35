package cmd

import (
	"github.com/spf13/cobra"
)

// appCmd represents the app command
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "used to run the timetable service",
	Long: `The timetable service is a json and html server for the weekly
timetable (this command is not ran directly)`,
}

func init() {
	rootCmd.AddCommand(appCmd)
}
