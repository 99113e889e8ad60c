package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tokdash/tokdash-go/internal/server"
)

func NewServeCommand() *cobra.Command {
	var (
		bind     string
		port     int
		logLevel string
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Long:  `Serve the aggregated usage API for the web dashboard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Host = bind
			}
			if port != 0 {
				if port < 1 || port > 65535 {
					return fmt.Errorf("invalid port %d, valid range is 1..65535", port)
				}
				cfg.Port = port
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			logger := newLogger(cfg.LogLevel)
			engine := buildEngine(cfg, debug)
			srv, err := server.New(engine, cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			urlHost := cfg.Host
			if urlHost == "0.0.0.0" || urlHost == "::" {
				urlHost = "localhost"
			}
			fmt.Printf("Starting tokdash on http://%s:%d\n", urlHost, cfg.Port)

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Bind address (default: 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: 55423)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log per-source collection failures")

	return cmd
}
