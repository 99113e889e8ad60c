package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokdash/tokdash-go/internal/output"
)

func NewStatsCommand() *cobra.Command {
	var (
		year    int
		format  string
		noColor bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the contribution calendar and usage stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine := buildEngine(cfg, debug)
			report := engine.Stats(cmd.Context(), year)

			formatter := output.NewFormatter(noColor)
			if format == "json" {
				rendered, err := formatter.FormatJSON(report)
				if err != nil {
					return err
				}
				fmt.Print(rendered)
				return nil
			}
			fmt.Print(formatter.FormatStats(report))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Calendar year (default: trailing 365 days)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log per-source collection failures")

	return cmd
}
