package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"price_watcher/internal/extract"
)

var extractFile bool

func init() {
	extractCmd.Flags().BoolVar(&extractFile, "file", false, "treat the argument as a local HTML file")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Fetches one page and prints the extracted title, price and availability.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		var html string
		if extractFile {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			html = string(data)
		} else {
			html, err = newFetcher(cfg.Fetcher, logger).Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}
		}

		record := extract.New().Extract(html)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}
