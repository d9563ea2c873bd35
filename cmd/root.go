package cmd

import (
	"context"
	"os"

	"github.com/Pjt727/timetable/data"
	"github.com/Pjt727/timetable/data/timetable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "timetable",
	Short: "timetable keeps a week by week class schedule",
	Long: `Timetable stores classes grouped into weeks and days. It can import
timetable pages, add single classes and serve the schedule over http`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return data.LoadEnv()
	},
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "connection string, overrides DB_CONN")
	rootCmd.PersistentFlags().Bool("verbose", false, "log every store operation")
}

// dbConfig reads the store settings from the environment and the --db flag
func dbConfig(cmd *cobra.Command) data.Config {
	cfg := data.ConfigFromEnv()
	if conn, _ := cmd.Flags().GetString("db"); conn != "" {
		cfg.ConnString = conn
	}
	return cfg
}

func commandLogger(cmd *cobra.Command, job string) *log.Entry {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log.SetLevel(log.TraceLevel)
	}
	return log.WithFields(log.Fields{
		"job": job,
	})
}

// openStore is for the one shot commands, the caller closes the backend
func openStore(ctx context.Context, cmd *cobra.Command, logger *log.Entry) (*timetable.Store, data.Backend, error) {
	backend, err := data.Open(ctx, dbConfig(cmd))
	if err != nil {
		return nil, nil, err
	}
	return timetable.NewStore(backend, logger), backend, nil
}
