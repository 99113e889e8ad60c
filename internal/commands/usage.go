package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokdash/tokdash-go/internal/output"
)

func NewUsageCommand() *cobra.Command {
	var (
		period  string
		format  string
		noColor bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show combined usage for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine := buildEngine(cfg, debug)
			snapshot := engine.Usage(cmd.Context(), period)

			formatter := output.NewFormatter(noColor)
			if format == "json" {
				rendered, err := formatter.FormatJSON(snapshot)
				if err != nil {
					return err
				}
				fmt.Print(rendered)
				return nil
			}
			fmt.Print(formatter.FormatUsage(snapshot))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "today", `Usage period: "today", "week", "month", or a number of days`)
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log per-source collection failures")

	return cmd
}
