// Package sources contains the per-tool usage parsers. Each parser reads
// one coding tool's native on-disk logs and emits normalized usage
// entries; all of them are fail-soft, skipping unreadable files and
// malformed records instead of aborting a collection run.
package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

// Parser is one tool-specific extraction unit. Collect returns the
// entries whose timestamp falls in [since, until); a zero bound is
// unbounded on that side. A missing log root yields an empty result,
// not an error.
type Parser interface {
	Name() string
	Collect(ctx context.Context, since, until time.Time) ([]types.UsageEntry, error)
}

// Paths locates each tool's log root. Zero fields fall back to the
// well-known per-tool defaults under the user's home directory.
type Paths struct {
	ClaudeRoot string
	CodexRoot  string
	OpenCodeDB string
	GeminiRoot string
	AmpRoot    string
}

// DefaultPaths resolves the conventional log locations for every tool.
func DefaultPaths() Paths {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Paths{
		ClaudeRoot: filepath.Join(home, ".claude", "projects"),
		CodexRoot:  filepath.Join(home, ".codex", "sessions"),
		OpenCodeDB: filepath.Join(xdg.DataHome, "opencode", "opencode.db"),
		GeminiRoot: filepath.Join(home, ".gemini"),
		AmpRoot:    filepath.Join(home, ".amp"),
	}
}

func (p Paths) withDefaults() Paths {
	def := DefaultPaths()
	if p.ClaudeRoot == "" {
		p.ClaudeRoot = def.ClaudeRoot
	}
	if p.CodexRoot == "" {
		p.CodexRoot = def.CodexRoot
	}
	if p.OpenCodeDB == "" {
		p.OpenCodeDB = def.OpenCodeDB
	}
	if p.GeminiRoot == "" {
		p.GeminiRoot = def.GeminiRoot
	}
	if p.AmpRoot == "" {
		p.AmpRoot = def.AmpRoot
	}
	return p
}

// Tracker is the registry of parsers for one pricing database. A
// collection run selects a subset of parsers by name (default all) and
// concatenates each parser's output. Collect carries no state between
// runs, so one Tracker is safe to share across concurrent requests.
type Tracker struct {
	parsers map[string]Parser
	order   []string
	debug   bool
}

// NewTracker registers the full parser set against one shared pricing
// database.
func NewTracker(db *pricing.DB, paths Paths) *Tracker {
	paths = paths.withDefaults()
	t := &Tracker{parsers: make(map[string]Parser)}
	for _, p := range []Parser{
		NewOpenCodeParser(db, paths.OpenCodeDB),
		NewCodexParser(db, paths.CodexRoot),
		NewClaudeParser(db, paths.ClaudeRoot),
		NewGeminiCLIParser(db, paths.GeminiRoot),
		NewAmpParser(db, paths.AmpRoot),
	} {
		t.parsers[p.Name()] = p
		t.order = append(t.order, p.Name())
	}
	return t
}

// SetDebug makes collection failures visible on stderr. The default is
// the silent-skip contract.
func (t *Tracker) SetDebug(debug bool) {
	t.debug = debug
}

// Names lists the registered parsers in registration order.
func (t *Tracker) Names() []string {
	return append([]string(nil), t.order...)
}

// Collect runs the selected parsers (all when names is empty) over
// [since, until) and returns their concatenated entries. Order across
// parsers is irrelevant: downstream aggregation is commutative.
func (t *Tracker) Collect(ctx context.Context, since, until time.Time, names ...string) []types.UsageEntry {
	var entries []types.UsageEntry
	selected := names
	if len(selected) == 0 {
		selected = t.order
	}
	for _, name := range selected {
		parser, ok := t.parsers[name]
		if !ok {
			continue
		}
		collected, err := parser.Collect(ctx, since, until)
		if err != nil {
			if t.debug {
				fmt.Fprintf(os.Stderr, "Debug: source %s failed: %v\n", name, err)
			}
			continue
		}
		entries = append(entries, collected...)
	}
	return entries
}

// inRange applies the half-open [since, until) window; zero bounds are
// unbounded.
func inRange(ts time.Time, since, until time.Time) bool {
	if ts.IsZero() {
		return false
	}
	if !since.IsZero() && ts.Before(since) {
		return false
	}
	if !until.IsZero() && !ts.Before(until) {
		return false
	}
	return true
}

// parseISOTimestamp accepts the RFC3339 shapes the tools write,
// including a trailing Z with fractional seconds.
func parseISOTimestamp(raw string) (time.Time, bool) {
	for _, format := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05",
	} {
		if ts, err := time.Parse(format, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// inferProvider guesses a provider id from the model family when the log
// does not record one.
func inferProvider(model, fallback string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude"):
		return "anthropic"
	case strings.Contains(m, "gemini"):
		return "google"
	case strings.HasPrefix(m, "gpt") || strings.Contains(m, "codex"):
		return "openai"
	}
	return fallback
}

// coalesce picks the first nonzero token count, for logs that carry the
// same dimension under two field names.
func coalesce(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// findFiles walks root collecting files with the given lowercase
// extension, ignoring anything unreadable.
func findFiles(root, ext string) []string {
	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(path), ext) {
			files = append(files, path)
		}
		return nil
	})
	return files
}
