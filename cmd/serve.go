package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pjt727/timetable/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the api service",
	Long:  `Runs the api service until it is interrupted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := server.ConfigFromEnv()
		if err != nil {
			log.Error("Invalid server configuration: ", err)
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx, cfg, dbConfig(cmd))
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", server.DefaultPort, "port to listen on, overrides PORT")
	appCmd.AddCommand(serveCmd)
}
