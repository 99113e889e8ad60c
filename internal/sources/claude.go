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

// ClaudeParser reads Claude Code session transcripts from
// ~/.claude/projects/**/*.jsonl. Claude Code writes the same API message
// several times (once per content chunk), so entries are deduplicated by
// the API message id across the whole collection run.
type ClaudeParser struct {
	root string
	db   *pricing.DB
}

func NewClaudeParser(db *pricing.DB, root string) *ClaudeParser {
	return &ClaudeParser{root: root, db: db}
}

func (p *ClaudeParser) Name() string { return "claude" }

type claudeUsage struct {
	InputTokens              int `json:"input_tokens"`
	Input                    int `json:"input"`
	OutputTokens             int `json:"output_tokens"`
	Output                   int `json:"output"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheReadTokens          int `json:"cache_read_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheWriteTokens         int `json:"cache_write_tokens"`
}

type claudeLine struct {
	Timestamp string `json:"timestamp"`
	Message   struct {
		ID    string       `json:"id"`
		Role  string       `json:"role"`
		Model string       `json:"model"`
		Usage *claudeUsage `json:"usage"`
	} `json:"message"`
}

func (p *ClaudeParser) Collect(ctx context.Context, since, until time.Time) ([]types.UsageEntry, error) {
	if _, err := os.Stat(p.root); err != nil {
		return nil, nil
	}

	var out []types.UsageEntry
	seenMessageIDs := make(map[string]bool)

	for _, path := range findFiles(p.root, ".jsonl") {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = p.collectFile(path, since, until, seenMessageIDs, out)
	}
	return out, nil
}

func (p *ClaudeParser) collectFile(path string, since, until time.Time, seen map[string]bool, out []types.UsageEntry) []types.UsageEntry {
	file, err := os.Open(path)
	if err != nil {
		return out
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record claudeLine
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		if record.Message.Role != "assistant" || record.Message.Usage == nil {
			continue
		}

		if id := record.Message.ID; id != "" {
			if seen[id] {
				continue
			}
			seen[id] = true
		}

		ts, ok := parseISOTimestamp(record.Timestamp)
		if !ok || !inRange(ts, since, until) {
			continue
		}

		usage := record.Message.Usage
		input := coalesce(usage.InputTokens, usage.Input)
		output := coalesce(usage.OutputTokens, usage.Output)
		cacheRead := coalesce(usage.CacheReadInputTokens, usage.CacheReadTokens)
		cacheWrite := coalesce(usage.CacheCreationInputTokens, usage.CacheWriteTokens)
		if input+output+cacheRead+cacheWrite == 0 {
			continue
		}

		model := record.Message.Model
		if model == "" {
			model = "unknown"
		}

		out = append(out, types.UsageEntry{
			Source:     p.Name(),
			Model:      model,
			Provider:   inferProvider(model, ""),
			Input:      input,
			Output:     output,
			CacheRead:  cacheRead,
			CacheWrite: cacheWrite,
			Cost:       p.db.Cost(model, input, output, cacheRead, cacheWrite),
			Timestamp:  ts.UnixMilli(),
		})
	}
	return out
}
