// Package compute turns raw source entries into the aggregated usage and
// stats objects the CLI prints and the HTTP API serves.
package compute

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tokdash/tokdash-go/internal/modelname"
	"github.com/tokdash/tokdash-go/internal/openclaw"
	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/sources"
	"github.com/tokdash/tokdash-go/internal/types"
)

// Engine binds the coding-tool tracker and the session-log source to one
// pricing database and produces the combined reports.
type Engine struct {
	db      *pricing.DB
	tracker *sources.Tracker
	session *openclaw.Source
	now     func() time.Time
}

func NewEngine(db *pricing.DB, tracker *sources.Tracker, session *openclaw.Source) *Engine {
	return &Engine{db: db, tracker: tracker, session: session, now: time.Now}
}

// ToolsUsage collects and aggregates coding-tool usage for one period.
// An explicit source list restricts collection to those parsers.
func (e *Engine) ToolsUsage(ctx context.Context, period string, sourceNames ...string) types.CodingUsage {
	since, until := periodRange(period, e.now())
	entries := e.tracker.Collect(ctx, since, until, sourceNames...)
	return ParseEntries(e.db, entries)
}

// SessionUsage aggregates session-log usage for one period.
func (e *Engine) SessionUsage(period string) types.SessionUsage {
	if period == "month" {
		return e.session.UsageForMonth()
	}
	return e.session.UsageForDays(PeriodToDays(period))
}

// Usage produces the combined snapshot for one period: coding tools and
// session logs reported side by side, plus the canonical combined model
// ranking that merges the same model across tools.
func (e *Engine) Usage(ctx context.Context, period string) types.UsageSnapshot {
	sessionData := e.SessionUsage(period)
	codingData := e.ToolsUsage(ctx, period)

	// The session source owns openclaw data; a same-named coding app
	// would double count it.
	codingApps := make(map[string]*types.AppUsage)
	for name, app := range codingData.Apps {
		if strings.EqualFold(name, e.session.Name()) {
			continue
		}
		codingApps[name] = app
	}

	// Keep model lists non-nil so empty ones serialize as [] rather
	// than null.
	codingModels := make([]types.ModelStat, 0)
	for _, stat := range codingData.AllModels {
		if strings.EqualFold(stat.Source, e.session.Name()) || !stat.HasVisibleUsage() {
			continue
		}
		codingModels = append(codingModels, stat)
	}

	totalTokens := sessionData.TotalTokens
	totalCost := sessionData.TotalCost
	byTool := make(map[string]types.ToolTotals, len(codingApps)+1)
	for name, app := range codingApps {
		totalTokens += app.Tokens
		totalCost += app.Cost
		byTool[name] = types.ToolTotals{Tokens: app.Tokens, Cost: app.Cost}
	}
	byTool[e.session.Name()] = types.ToolTotals{
		Tokens: sessionData.TotalTokens,
		Cost:   sessionData.TotalCost,
	}

	openclawModels := make([]types.ModelStat, 0)
	for name, stat := range sessionData.Models {
		stat.Name = name
		if !stat.HasVisibleUsage() {
			continue
		}
		openclawModels = append(openclawModels, stat)
	}
	sort.SliceStable(openclawModels, func(i, j int) bool {
		if openclawModels[i].Cost != openclawModels[j].Cost {
			return openclawModels[i].Cost > openclawModels[j].Cost
		}
		return openclawModels[i].Name < openclawModels[j].Name
	})

	combined := combineModels(codingModels, openclawModels)

	topModels := combined
	if len(topModels) > 5 {
		topModels = topModels[:5]
	}

	return types.UsageSnapshot{
		Period:         period,
		TotalTokens:    totalTokens,
		TotalCost:      math.Round(totalCost*100) / 100,
		ByTool:         byTool,
		Apps:           codingApps,
		CodingApps:     codingApps,
		CodingModels:   codingModels,
		TopModels:      topModels,
		OpenclawModels: openclawModels,
		CombinedModels: combined,
		Timestamp:      e.now().Format(time.RFC3339),
	}
}

// combineModels folds per-tool model rows into one row per canonical
// model name, so the same model used from different tools ranks as one.
func combineModels(groups ...[]types.ModelStat) []types.ModelStat {
	byName := make(map[string]*types.ModelStat)
	var order []string

	for _, group := range groups {
		for _, row := range group {
			if !row.HasVisibleUsage() {
				continue
			}
			name := row.Name
			if name == "" {
				name = "unknown"
			}
			key := modelname.Normalize(name)

			cur, ok := byName[key]
			if !ok {
				cur = &types.ModelStat{Name: key}
				byName[key] = cur
				order = append(order, key)
			}
			cur.Tokens += row.Tokens
			cur.TokensIn += row.TokensIn
			cur.TokensOut += row.TokensOut
			cur.TokensCache += row.TokensCache
			cur.Cost += row.Cost
			cur.Messages += row.Messages
		}
	}

	out := make([]types.ModelStat, 0, len(order))
	for _, key := range order {
		out = append(out, *byName[key])
	}
	sortByCostDesc(out)
	return out
}
