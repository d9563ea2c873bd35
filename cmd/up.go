package cmd

import (
	"context"

	"github.com/Pjt727/timetable/data"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Prepares the store",
	Long: `Runs the up migrations for postgres, builds the unique week index for
mongo and creates the weeks bucket for bolt. Errors if the store cannot be prepared`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := commandLogger(cmd, "up")
		if err := data.Migrate(context.Background(), dbConfig(cmd)); err != nil {
			logger.Error("Could not prepare the store: ", err)
			return err
		}
		logger.Info("Store is ready")
		return nil
	},
}

func init() {
	appCmd.AddCommand(upCmd)
}
