package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewExportCommand() *cobra.Command {
	var (
		period     string
		pretty     bool
		outputPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the combined usage snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine := buildEngine(cfg, debug)
			snapshot := engine.Usage(cmd.Context(), period)

			var payload []byte
			if pretty {
				payload, err = json.MarshalIndent(snapshot, "", "  ")
			} else {
				payload, err = json.Marshal(snapshot)
			}
			if err != nil {
				return err
			}

			if outputPath != "" {
				return os.WriteFile(outputPath, append(payload, '\n'), 0o644)
			}
			fmt.Println(string(payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "today", `Usage period: "today", "week", "month", or a number of days`)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log per-source collection failures")

	return cmd
}
