// Package openclaw aggregates usage from OpenClaw gateway session logs.
// Unlike the coding-tool parsers it produces per-day contribution series
// directly, because the session logs are the only source with reliable
// calendar coverage.
package openclaw

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

// Source reads OpenClaw session JSONL logs under <root>/agents/*/sessions.
type Source struct {
	root string
	db   *pricing.DB
	now  func() time.Time
}

// New builds a Source over the given OpenClaw home. An empty root falls
// back to ~/.openclaw.
func New(db *pricing.DB, root string) *Source {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		root = filepath.Join(home, ".openclaw")
	}
	return &Source{root: root, db: db, now: time.Now}
}

func (s *Source) Name() string { return "openclaw" }

func (s *Source) sessionDirs() []string {
	dirs, err := filepath.Glob(filepath.Join(s.root, "agents", "*", "sessions"))
	if err != nil {
		return nil
	}
	return dirs
}

// sessionFiles lists every log under the session dirs. Rotated files
// (.jsonl.reset.<ts>, .jsonl.deleted.<ts>) still hold billable history
// and are included; .lock files are not logs.
func sessionFiles(dirs []string) []string {
	var files []string
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl*"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if strings.HasSuffix(filepath.Base(m), ".lock") {
				continue
			}
			files = append(files, m)
		}
	}
	return files
}

type sessionLine struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Message   struct {
		Role     string        `json:"role"`
		Provider string        `json:"provider"`
		Model    string        `json:"model"`
		Usage    *sessionUsage `json:"usage"`
	} `json:"message"`
}

type sessionUsage struct {
	Input            int             `json:"input"`
	InputTokens      int             `json:"inputTokens"`
	Output           int             `json:"output"`
	OutputTokens     int             `json:"outputTokens"`
	CacheRead        int             `json:"cacheRead"`
	CacheReadTokens  int             `json:"cacheReadTokens"`
	CacheWrite       int             `json:"cacheWrite"`
	CacheWriteTokens int             `json:"cacheWriteTokens"`
	Cost             json.RawMessage `json:"cost"`
	TotalCost        json.RawMessage `json:"totalCost"`
}

// payloadCost extracts the provider-reported cost, which is either a bare
// number or an object with a total/value field.
func (u *sessionUsage) payloadCost() float64 {
	for _, raw := range []json.RawMessage{u.Cost, u.TotalCost} {
		if len(raw) == 0 {
			continue
		}
		var scalar float64
		if err := json.Unmarshal(raw, &scalar); err == nil {
			if scalar > 0 {
				return scalar
			}
			continue
		}
		var obj struct {
			Total float64 `json:"total"`
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			if obj.Total > 0 {
				return obj.Total
			}
			if obj.Value > 0 {
				return obj.Value
			}
		}
	}
	return 0
}

// parseTimestamp accepts an epoch number (milliseconds when larger than
// 1e11, seconds otherwise) or an ISO 8601 string.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num == 0 {
			return time.Time{}, false
		}
		if num > 1e11 {
			return time.UnixMilli(int64(num)).UTC(), true
		}
		return time.Unix(int64(num), 0).UTC(), true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil || str == "" {
		return time.Time{}, false
	}
	for _, format := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(format, str); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

type dayAccum struct {
	in, out, cacheRead, total int
	cost                      float64
	messages                  int
	sources                   map[string]*sourceAccum
}

type sourceAccum struct {
	in, out, cacheRead, total int
	cost                      float64
	messages                  int
}

// Usage aggregates every assistant message in [since, until]. Both
// bounds are inclusive; zero bounds are unbounded.
func (s *Source) Usage(since, until time.Time) types.SessionUsage {
	modelStats := make(map[string]*types.ModelStat)
	days := make(map[string]*dayAccum)
	totalMessages := 0

	for _, path := range sessionFiles(s.sessionDirs()) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		// A file untouched since before the window has nothing in it.
		if !since.IsZero() && info.ModTime().Before(since) {
			continue
		}
		s.collectFile(path, since, until, modelStats, days, &totalMessages)
	}

	usage := types.SessionUsage{
		TotalMessages: totalMessages,
		Models:        make(map[string]types.ModelStat, len(modelStats)),
	}
	for model, stats := range modelStats {
		stats.Tokens = stats.TokensIn + stats.TokensOut + stats.TokensCache
		usage.TotalTokens += stats.Tokens
		usage.TotalCost += stats.Cost
		usage.Models[model] = *stats
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		day := days[date]

		models := make([]string, 0, len(day.sources))
		for model := range day.sources {
			models = append(models, model)
		}
		sort.Strings(models)

		sources := make([]types.DaySource, 0, len(models))
		for _, model := range models {
			src := day.sources[model]
			provider := "unknown"
			if idx := strings.Index(model, "/"); idx >= 0 {
				provider = model[:idx]
			}
			sources = append(sources, types.DaySource{
				Source:     s.Name(),
				ModelID:    model,
				ProviderID: provider,
				Tokens: types.TokenBreakdown{
					Input:     src.in,
					Output:    src.out,
					CacheRead: src.cacheRead,
				},
				Cost:     src.cost,
				Messages: src.messages,
			})
		}

		usage.Contributions = append(usage.Contributions, types.DayContribution{
			Date: date,
			Totals: types.DayTotals{
				Tokens:   day.total,
				Cost:     roundTo(day.cost, 6),
				Messages: day.messages,
			},
			TokenBreakdown: types.TokenBreakdown{
				Input:     day.in,
				Output:    day.out,
				CacheRead: day.cacheRead,
			},
			Sources: sources,
		})
	}

	return usage
}

func (s *Source) collectFile(path string, since, until time.Time, modelStats map[string]*types.ModelStat, days map[string]*dayAccum, totalMessages *int) {
	file, err := os.Open(path)
	if err != nil {
		return
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

		var record sessionLine
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		if record.Type != "message" || record.Message.Role != "assistant" {
			continue
		}

		ts, ok := parseTimestamp(record.Timestamp)
		if !ok {
			continue
		}
		if !since.IsZero() && ts.Before(since) {
			continue
		}
		if !until.IsZero() && ts.After(until) {
			continue
		}

		*totalMessages++

		usage := record.Message.Usage
		if usage == nil {
			continue
		}

		provider := record.Message.Provider
		modelID := record.Message.Model
		if modelID == "" {
			modelID = "unknown"
		}
		model := modelID
		if provider != "" && provider != "unknown" {
			model = provider + "/" + modelID
		}

		inputRaw := coalesce(usage.Input, usage.InputTokens)
		cacheWrite := coalesce(usage.CacheWrite, usage.CacheWriteTokens)
		tokensIn := inputRaw + cacheWrite
		tokensOut := coalesce(usage.Output, usage.OutputTokens)
		tokensCache := coalesce(usage.CacheRead, usage.CacheReadTokens)
		tokensTotal := tokensIn + tokensOut + tokensCache

		cost := s.db.Cost(model, inputRaw, tokensOut, tokensCache, cacheWrite)
		if cost <= 0 {
			cost = usage.payloadCost()
		}

		stats, ok := modelStats[model]
		if !ok {
			stats = &types.ModelStat{Name: model}
			modelStats[model] = stats
		}
		stats.TokensIn += tokensIn
		stats.TokensOut += tokensOut
		stats.TokensCache += tokensCache
		stats.Cost += cost
		stats.Messages++

		date := ts.Local().Format("2006-01-02")
		day, ok := days[date]
		if !ok {
			day = &dayAccum{sources: make(map[string]*sourceAccum)}
			days[date] = day
		}
		day.in += tokensIn
		day.out += tokensOut
		day.cacheRead += tokensCache
		day.total += tokensTotal
		day.cost += cost
		day.messages++

		src, ok := day.sources[model]
		if !ok {
			src = &sourceAccum{}
			day.sources[model] = src
		}
		src.in += tokensIn
		src.out += tokensOut
		src.cacheRead += tokensCache
		src.total += tokensTotal
		src.cost += cost
		src.messages++
	}
}

// UsageForDays covers the last n calendar days, from local midnight
// n-1 days ago through now.
func (s *Source) UsageForDays(n int) types.SessionUsage {
	if n < 1 {
		n = 1
	}
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	since := midnight.AddDate(0, 0, -(n - 1))
	return s.Usage(since, now)
}

// UsageForMonth covers the current local calendar month to date.
func (s *Source) UsageForMonth() types.SessionUsage {
	now := s.now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.Usage(since, now)
}

// UsageForYear covers one local calendar year.
func (s *Source) UsageForYear(year int) types.SessionUsage {
	loc := s.now().Location()
	since := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	until := time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc).Add(-time.Microsecond)
	return s.Usage(since, until)
}

func coalesce(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
