package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

// GeminiParser reads Gemini CLI session chat files under
// ~/.gemini/tmp/<project-hash>/chats/session-*.json.
type GeminiParser struct {
	root string
	db   *pricing.DB
}

func NewGeminiCLIParser(db *pricing.DB, root string) *GeminiParser {
	return &GeminiParser{root: root, db: db}
}

func (p *GeminiParser) Name() string { return "gemini_cli" }

type geminiSession struct {
	Messages []geminiMessage `json:"messages"`
}

type geminiMessage struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Model     string        `json:"model"`
	Timestamp string        `json:"timestamp"`
	Tokens    *geminiTokens `json:"tokens"`
}

type geminiTokens struct {
	Input    int `json:"input"`
	Output   int `json:"output"`
	Cached   int `json:"cached"`
	Thoughts int `json:"thoughts"`
}

func (p *GeminiParser) Collect(ctx context.Context, since, until time.Time) ([]types.UsageEntry, error) {
	tmpDir := filepath.Join(p.root, "tmp")
	projects, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	var out []types.UsageEntry
	for _, proj := range projects {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if !proj.IsDir() {
			continue
		}
		chats, err := filepath.Glob(filepath.Join(tmpDir, proj.Name(), "chats", "session-*.json"))
		if err != nil {
			continue
		}
		for _, path := range chats {
			entries, err := p.collectFile(path, since, until, seen)
			if err != nil {
				continue
			}
			out = append(out, entries...)
		}
	}
	return out, nil
}

func (p *GeminiParser) collectFile(path string, since, until time.Time, seen map[string]bool) ([]types.UsageEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.LoaderError{Path: path, Err: err}
	}

	var session geminiSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, types.LoaderError{Path: path, Err: err}
	}

	var out []types.UsageEntry
	for _, msg := range session.Messages {
		if msg.Type != "gemini" || msg.Tokens == nil {
			continue
		}
		if msg.ID != "" {
			if seen[msg.ID] {
				continue
			}
			seen[msg.ID] = true
		}

		ts, ok := parseISOTimestamp(msg.Timestamp)
		if !ok || !inRange(ts, since, until) {
			continue
		}

		t := msg.Tokens
		if t.Input == 0 && t.Output == 0 && t.Cached == 0 && t.Thoughts == 0 {
			continue
		}

		model := msg.Model
		if model == "" {
			model = "unknown"
		}

		out = append(out, types.UsageEntry{
			Source:    p.Name(),
			Model:     model,
			Provider:  "google",
			Input:     t.Input,
			Output:    t.Output,
			CacheRead: t.Cached,
			Reasoning: t.Thoughts,
			Cost:      p.db.Cost(model, t.Input, t.Output, t.Cached, 0),
			Timestamp: ts.UnixMilli(),
		})
	}
	return out, nil
}
