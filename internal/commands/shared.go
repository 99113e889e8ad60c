package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/tokdash/tokdash-go/internal/compute"
	"github.com/tokdash/tokdash-go/internal/config"
	"github.com/tokdash/tokdash-go/internal/openclaw"
	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/sources"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

// buildEngine wires the pricing database, the coding-tool tracker and
// the session-log source from one config.
func buildEngine(cfg *config.Config, debug bool) *compute.Engine {
	db := pricing.Load(cfg.PricingPath)

	tracker := sources.NewTracker(db, sources.Paths{
		ClaudeRoot: cfg.Paths.ClaudeRoot,
		CodexRoot:  cfg.Paths.CodexRoot,
		OpenCodeDB: cfg.Paths.OpenCodeDB,
		GeminiRoot: cfg.Paths.GeminiRoot,
		AmpRoot:    cfg.Paths.AmpRoot,
	})
	tracker.SetDebug(debug)

	session := openclaw.New(db, cfg.Paths.OpenclawRoot)
	return compute.NewEngine(db, tracker, session)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
