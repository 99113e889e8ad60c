package sources

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestClaudeParserCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proj", "session.jsonl"), `
{"timestamp":"2026-08-20T10:00:00Z","message":{"id":"msg_1","role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":400,"cache_creation_input_tokens":20}}}
{"timestamp":"2026-08-20T10:00:01Z","message":{"id":"msg_1","role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50}}}
{"timestamp":"2026-08-20T10:00:02Z","message":{"id":"msg_2","role":"user","model":"claude-sonnet-4-5","usage":{"input_tokens":5}}}
{"timestamp":"2026-08-20T10:00:03Z","message":{"id":"msg_3","role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":0,"output_tokens":0}}}
not json at all
{"timestamp":"2026-08-20T10:00:04Z","message":{"id":"msg_4","role":"assistant","usage":{"input":7,"output":3,"cache_read_tokens":1,"cache_write_tokens":2}}}
`)

	parser := NewClaudeParser(pricing.Default(), root)
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "claude", first.Source)
	assert.Equal(t, "claude-sonnet-4-5", first.Model)
	assert.Equal(t, "anthropic", first.Provider)
	assert.Equal(t, 100, first.Input)
	assert.Equal(t, 50, first.Output)
	assert.Equal(t, 400, first.CacheRead)
	assert.Equal(t, 20, first.CacheWrite)
	assert.Greater(t, first.Cost, 0.0)

	// Alias field names and a missing model still produce an entry.
	second := entries[1]
	assert.Equal(t, "unknown", second.Model)
	assert.Equal(t, 7, second.Input)
	assert.Equal(t, 3, second.Output)
	assert.Equal(t, 1, second.CacheRead)
	assert.Equal(t, 2, second.CacheWrite)
}

func TestClaudeParserDedupAcrossFiles(t *testing.T) {
	root := t.TempDir()
	line := `{"timestamp":"2026-08-20T10:00:00Z","message":{"id":"msg_1","role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":10,"output_tokens":5}}}`
	writeFile(t, filepath.Join(root, "a", "one.jsonl"), line+"\n")
	writeFile(t, filepath.Join(root, "b", "two.jsonl"), line+"\n")

	parser := NewClaudeParser(pricing.Default(), root)
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClaudeParserMissingRoot(t *testing.T) {
	parser := NewClaudeParser(pricing.Default(), filepath.Join(t.TempDir(), "nope"))
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClaudeParserTimeWindow(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "s.jsonl"), `
{"timestamp":"2026-08-19T23:59:59Z","message":{"id":"early","role":"assistant","model":"m","usage":{"input_tokens":1}}}
{"timestamp":"2026-08-20T00:00:00Z","message":{"id":"inside","role":"assistant","model":"m","usage":{"input_tokens":2}}}
{"timestamp":"2026-08-21T00:00:00Z","message":{"id":"late","role":"assistant","model":"m","usage":{"input_tokens":3}}}
`)

	since := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	parser := NewClaudeParser(pricing.Default(), root)
	entries, err := parser.Collect(context.Background(), since, until)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Input)
}

func TestCodexParserCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2026", "08", "session.jsonl"), `
{"timestamp":"2026-08-20T10:00:00Z","type":"session_meta","payload":{"model_provider":"openai"}}
{"timestamp":"2026-08-20T10:00:01Z","type":"turn_context","payload":{"model":"gpt-5.3-codex"}}
{"timestamp":"2026-08-20T10:00:02Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":500,"cached_input_tokens":400,"output_tokens":80,"reasoning_output_tokens":30}}}}
{"timestamp":"2026-08-20T10:00:03Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":0,"cached_input_tokens":0,"output_tokens":0,"reasoning_output_tokens":0}}}}
{"timestamp":"2026-08-20T10:00:04Z","type":"event_msg","payload":{"type":"agent_message"}}
`)

	parser := NewCodexParser(pricing.Default(), root)
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "codex", entry.Source)
	assert.Equal(t, "gpt-5.3-codex", entry.Model)
	assert.Equal(t, "openai", entry.Provider)
	// Fresh input is input_tokens minus the cached share.
	assert.Equal(t, 100, entry.Input)
	assert.Equal(t, 400, entry.CacheRead)
	assert.Equal(t, 80, entry.Output)
	assert.Equal(t, 30, entry.Reasoning)
}

func TestCodexParserDefaultModel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "s.jsonl"), `
{"timestamp":"2026-08-20T10:00:00Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":10,"output_tokens":5}}}}
`)

	parser := NewCodexParser(pricing.Default(), root)
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, defaultCodexModel, entries[0].Model)
	assert.Equal(t, "openai", entries[0].Provider)
}

func TestGeminiParserCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tmp", "hash1", "chats", "session-1.json"), `{
		"messages": [
			{"id":"g1","type":"gemini","model":"gemini-3-pro","timestamp":"2026-08-20T10:00:00Z","tokens":{"input":200,"output":90,"cached":50,"thoughts":10}},
			{"id":"g1","type":"gemini","model":"gemini-3-pro","timestamp":"2026-08-20T10:00:01Z","tokens":{"input":200,"output":90}},
			{"id":"u1","type":"user","timestamp":"2026-08-20T10:00:02Z"},
			{"id":"g2","type":"gemini","model":"gemini-3-pro","timestamp":"2026-08-20T10:00:03Z","tokens":{"input":0,"output":0,"cached":0,"thoughts":0}}
		]
	}`)
	writeFile(t, filepath.Join(root, "tmp", "hash2", "chats", "session-2.json"), `not json`)

	parser := NewGeminiCLIParser(pricing.Default(), root)
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "gemini_cli", entry.Source)
	assert.Equal(t, "google", entry.Provider)
	assert.Equal(t, 200, entry.Input)
	assert.Equal(t, 90, entry.Output)
	assert.Equal(t, 50, entry.CacheRead)
	assert.Equal(t, 10, entry.Reasoning)
	assert.Equal(t, 0, entry.CacheWrite)
}

func TestOpenCodeParserCollect(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "opencode.db")
	conn, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE message (id TEXT PRIMARY KEY, data TEXT, time_created INTEGER)`)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC).UnixMilli()
	insert := func(id, data string, created int64) {
		_, err := conn.Exec(`INSERT INTO message (id, data, time_created) VALUES (?, ?, ?)`, id, data, created)
		require.NoError(t, err)
	}
	insert("m1", `{"modelID":"claude-sonnet-4-5","providerID":"anthropic","tokens":{"input":100,"output":40,"reasoning":5,"cache":{"read":300,"write":10}}}`, ts)
	insert("m2", `{"modelID":"claude-sonnet-4-5","providerID":"anthropic"}`, ts)
	insert("m3", `not json`, ts)
	insert("m4", `{"modelID":"old","tokens":{"input":1,"output":1}}`, ts-86_400_000*10)
	require.NoError(t, conn.Close())

	parser := NewOpenCodeParser(pricing.Default(), dbPath)
	since := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	entries, err := parser.Collect(context.Background(), since, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "opencode", entry.Source)
	assert.Equal(t, "claude-sonnet-4-5", entry.Model)
	assert.Equal(t, "anthropic", entry.Provider)
	assert.Equal(t, 100, entry.Input)
	assert.Equal(t, 40, entry.Output)
	assert.Equal(t, 300, entry.CacheRead)
	assert.Equal(t, 10, entry.CacheWrite)
	assert.Equal(t, 5, entry.Reasoning)
	assert.Equal(t, ts, entry.Timestamp)
}

func TestOpenCodeParserMissingDB(t *testing.T) {
	parser := NewOpenCodeParser(pricing.Default(), filepath.Join(t.TempDir(), "absent.db"))
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAmpParserEmpty(t *testing.T) {
	parser := NewAmpParser(pricing.Default(), t.TempDir())
	entries, err := parser.Collect(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrackerNames(t *testing.T) {
	tracker := newTestTracker(t)
	assert.Equal(t, []string{"opencode", "codex", "claude", "gemini_cli", "amp"}, tracker.Names())
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	base := t.TempDir()
	return NewTracker(pricing.Default(), Paths{
		ClaudeRoot: filepath.Join(base, "claude"),
		CodexRoot:  filepath.Join(base, "codex"),
		OpenCodeDB: filepath.Join(base, "opencode.db"),
		GeminiRoot: filepath.Join(base, "gemini"),
		AmpRoot:    filepath.Join(base, "amp"),
	})
}

func TestTrackerSubset(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	writeFile(t, filepath.Join(claudeRoot, "p", "s.jsonl"),
		`{"timestamp":"2026-08-20T10:00:00Z","message":{"id":"m","role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":10,"output_tokens":5}}}`+"\n")

	tracker := NewTracker(pricing.Default(), Paths{
		ClaudeRoot: claudeRoot,
		CodexRoot:  filepath.Join(base, "codex"),
		OpenCodeDB: filepath.Join(base, "opencode.db"),
		GeminiRoot: filepath.Join(base, "gemini"),
		AmpRoot:    filepath.Join(base, "amp"),
	})

	entries := tracker.Collect(context.Background(), time.Time{}, time.Time{}, "claude")
	require.Len(t, entries, 1)

	// Unknown names are skipped.
	entries = tracker.Collect(context.Background(), time.Time{}, time.Time{}, "no_such_tool")
	assert.Empty(t, entries)
}

func TestTrackerConcurrentCollect(t *testing.T) {
	base := t.TempDir()
	claudeRoot := filepath.Join(base, "claude")
	writeFile(t, filepath.Join(claudeRoot, "p", "s.jsonl"),
		`{"timestamp":"2026-08-20T10:00:00Z","message":{"id":"m","role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":10,"output_tokens":5}}}`+"\n")

	tracker := NewTracker(pricing.Default(), Paths{
		ClaudeRoot: claudeRoot,
		CodexRoot:  filepath.Join(base, "codex"),
		OpenCodeDB: filepath.Join(base, "opencode.db"),
		GeminiRoot: filepath.Join(base, "gemini"),
		AmpRoot:    filepath.Join(base, "amp"),
	})

	// One tracker serves every HTTP request, so simultaneous collection
	// runs must not interfere with each other.
	var wg sync.WaitGroup
	results := make([][]types.UsageEntry, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tracker.Collect(context.Background(), time.Time{}, time.Time{})
		}(i)
	}
	wg.Wait()

	for _, entries := range results {
		require.Len(t, entries, 1)
		assert.Equal(t, "claude", entries[0].Source)
	}
}

func TestInRange(t *testing.T) {
	mid := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		ts           time.Time
		since, until time.Time
		want         bool
	}{
		{"unbounded", mid, time.Time{}, time.Time{}, true},
		{"inside window", mid, day, next, true},
		{"at since", day, day, next, true},
		{"at until excluded", next, day, next, false},
		{"before since", day.Add(-time.Second), day, next, false},
		{"zero timestamp", time.Time{}, time.Time{}, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inRange(tt.ts, tt.since, tt.until))
		})
	}
}

func TestInferProvider(t *testing.T) {
	tests := []struct {
		model, fallback, want string
	}{
		{"claude-sonnet-4-5", "", "anthropic"},
		{"gemini-3-pro", "", "google"},
		{"gpt-5.3-codex", "", "openai"},
		{"kimi-k2.5", "moonshot", "moonshot"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferProvider(tt.model, tt.fallback), tt.model)
	}
}

func TestEntryBilledTokens(t *testing.T) {
	entry := types.UsageEntry{Input: 100, Output: 50, CacheRead: 400, CacheWrite: 20}
	assert.Equal(t, 570, entry.TotalTokens())
}
