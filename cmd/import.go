package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pjt727/timetable/collection"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file.html]",
	Short: "Imports a timetable page",
	Long: `Reads an exported timetable page from a file or from --url and adds
every class on it. Rows that are incomplete are reported and skipped`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := commandLogger(cmd, "import")
		url, _ := cmd.Flags().GetString("url")

		var source collection.Source
		switch {
		case url != "" && len(args) == 1:
			return errors.New("give either a file or --url, not both")
		case url != "":
			source = collection.NewURLSource(url, logger)
		case len(args) == 1:
			source = collection.FileSource{Path: args[0]}
		default:
			return errors.New("a file or --url is required")
		}

		ctx := context.Background()
		store, backend, err := openStore(ctx, cmd, logger)
		if err != nil {
			logger.Error("Could not connect to store: ", err)
			return err
		}
		defer backend.Close()

		report, err := collection.NewImporter(store, nil, logger).Import(ctx, source)
		if err != nil {
			logger.Error("Import failed: ", err)
			return err
		}
		for _, failed := range report.Failed {
			fmt.Fprintf(cmd.OutOrStdout(), "row %d (%s): %s\n", failed.Row, failed.Date, failed.Err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d of %d classes from %s\n", report.Added, report.Parsed, report.Source)
		return nil
	},
}

func init() {
	importCmd.Flags().String("url", "", "fetch the page instead of reading a file")
	rootCmd.AddCommand(importCmd)
}
