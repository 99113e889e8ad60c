package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

const defaultCodexModel = "gpt-5.3-codex"

// CodexParser reads Codex CLI session logs from ~/.codex/sessions.
// Each session is a JSONL event stream: turn_context events carry the
// active model, session_meta the provider, and event_msg/token_count
// the per-turn usage deltas.
type CodexParser struct {
	root string
	db   *pricing.DB
}

func NewCodexParser(db *pricing.DB, root string) *CodexParser {
	return &CodexParser{root: root, db: db}
}

func (p *CodexParser) Name() string { return "codex" }

type codexEvent struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

type codexPayload struct {
	Type          string          `json:"type"`
	Model         string          `json:"model"`
	ModelProvider string          `json:"model_provider"`
	Info          *codexTokenInfo `json:"info"`
}

type codexTokenInfo struct {
	// last_token_usage is the per-turn delta; total_token_usage is
	// cumulative and must not be summed.
	LastTokenUsage codexTokenUsage `json:"last_token_usage"`
}

type codexTokenUsage struct {
	InputTokens           int `json:"input_tokens"`
	CachedInputTokens     int `json:"cached_input_tokens"`
	OutputTokens          int `json:"output_tokens"`
	ReasoningOutputTokens int `json:"reasoning_output_tokens"`
}

func (p *CodexParser) Collect(ctx context.Context, since, until time.Time) ([]types.UsageEntry, error) {
	if _, err := os.Stat(p.root); err != nil {
		return nil, nil
	}

	var out []types.UsageEntry
	for _, path := range findFiles(p.root, ".jsonl") {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = p.collectSession(path, since, until, out)
	}
	return out, nil
}

func (p *CodexParser) collectSession(path string, since, until time.Time, out []types.UsageEntry) []types.UsageEntry {
	file, err := os.Open(path)
	if err != nil {
		return out
	}
	defer file.Close()

	model := defaultCodexModel
	provider := "openai"

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event codexEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		var payload codexPayload
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				continue
			}
		}

		switch {
		case event.Type == "turn_context" && payload.Model != "":
			model = payload.Model
			provider = inferProvider(model, provider)
			continue
		case event.Type == "session_meta" && payload.ModelProvider != "":
			provider = payload.ModelProvider
			continue
		case event.Type != "event_msg" || payload.Type != "token_count":
			continue
		}

		ts, ok := parseISOTimestamp(event.Timestamp)
		if !ok || !inRange(ts, since, until) {
			continue
		}
		if payload.Info == nil {
			continue
		}

		usage := payload.Info.LastTokenUsage

		// Codex reports input_tokens inclusive of cached tokens; fresh
		// input is the difference.
		cacheRead := usage.CachedInputTokens
		input := usage.InputTokens - cacheRead
		output := usage.OutputTokens
		reasoning := usage.ReasoningOutputTokens
		if input == 0 && output == 0 && cacheRead == 0 && reasoning == 0 {
			continue
		}

		out = append(out, types.UsageEntry{
			Source:    p.Name(),
			Model:     model,
			Provider:  provider,
			Input:     input,
			Output:    output,
			CacheRead: cacheRead,
			Reasoning: reasoning,
			Cost:      p.db.Cost(model, input, output, cacheRead, 0),
			Timestamp: ts.UnixMilli(),
		})
	}
	return out
}
