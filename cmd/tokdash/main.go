package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tokdash/tokdash-go/internal/commands"
)

func main() {
	ctx := context.Background()

	rootCmd := &cobra.Command{
		Use:   "tokdash",
		Short: "AI token usage dashboard",
		Long:  `Aggregates token usage and cost across local AI coding tools and OpenClaw session logs.`,
	}

	rootCmd.AddCommand(
		commands.NewServeCommand(),
		commands.NewExportCommand(),
		commands.NewUsageCommand(),
		commands.NewStatsCommand(),
		commands.NewMonitorCommand(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
