package commands

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tokdash/tokdash-go/internal/monitor"
)

func NewMonitorCommand() *cobra.Command {
	var (
		period   string
		interval time.Duration
		noColor  bool
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live terminal view of combined usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine := buildEngine(cfg, debug)

			if !isatty.IsTerminal(os.Stdout.Fd()) {
				noColor = true
			}

			m := monitor.New(engine, monitor.Options{
				Period:   period,
				Interval: interval,
				NoColor:  noColor,
			})
			return m.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&period, "period", "today", `Usage period: "today", "week", "month", or a number of days`)
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Refresh interval")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log per-source collection failures")

	return cmd
}
