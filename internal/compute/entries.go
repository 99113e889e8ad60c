package compute

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

// ParseEntries folds raw usage entries into the per-app and per-model
// aggregate. Costs are recomputed against the local pricing database so
// every source is priced consistently, regardless of what the tool's own
// log claimed.
func ParseEntries(db *pricing.DB, entries []types.UsageEntry) types.CodingUsage {
	usage := types.CodingUsage{Apps: make(map[string]*types.AppUsage)}

	type globalKey struct {
		source, model string
	}
	globalStats := make(map[globalKey]*types.ModelStat)
	var globalOrder []globalKey

	appModels := make(map[string]map[string]*types.ModelStat)
	appModelOrder := make(map[string][]string)

	for _, entry := range entries {
		source := entry.Source
		if source == "" {
			source = "unknown"
		}
		model := entry.Model
		if model == "" {
			model = "unknown"
		}
		fullModel := model
		if entry.Provider != "" {
			fullModel = entry.Provider + "/" + model
		}

		// Reporting semantics: cache writes are billable input, cache
		// reads are the cache column.
		tokensIn := entry.Input + entry.CacheWrite
		tokensOut := entry.Output
		tokensCache := entry.CacheRead
		total := tokensIn + tokensOut + tokensCache
		if total == 0 {
			continue
		}

		cost := db.Cost(fullModel, entry.Input, tokensOut, entry.CacheRead, entry.CacheWrite)
		messages := entry.MessageCount
		if messages == 0 {
			messages = 1
		}

		app, ok := usage.Apps[source]
		if !ok {
			app = &types.AppUsage{}
			usage.Apps[source] = app
			appModels[source] = make(map[string]*types.ModelStat)
		}
		app.Tokens += total
		app.TokensIn += tokensIn
		app.TokensOut += tokensOut
		app.TokensCache += tokensCache
		app.Cost += cost
		app.Messages += messages

		modelStat, ok := appModels[source][fullModel]
		if !ok {
			modelStat = &types.ModelStat{Name: fullModel}
			appModels[source][fullModel] = modelStat
			appModelOrder[source] = append(appModelOrder[source], fullModel)
		}
		modelStat.Tokens += total
		modelStat.TokensIn += tokensIn
		modelStat.TokensOut += tokensOut
		modelStat.TokensCache += tokensCache
		modelStat.Cost += cost
		modelStat.Messages += messages

		key := globalKey{source, fullModel}
		global, ok := globalStats[key]
		if !ok {
			global = &types.ModelStat{Source: source, Name: fullModel}
			globalStats[key] = global
			globalOrder = append(globalOrder, key)
		}
		global.Tokens += total
		global.TokensIn += tokensIn
		global.TokensOut += tokensOut
		global.TokensCache += tokensCache
		global.Cost += cost
		global.Messages += messages
	}

	for source, app := range usage.Apps {
		models := make([]types.ModelStat, 0, len(appModels[source]))
		for _, name := range appModelOrder[source] {
			models = append(models, *appModels[source][name])
		}
		sortByCostDesc(models)
		app.Models = models
	}

	allModels := make([]types.ModelStat, 0, len(globalOrder))
	for _, key := range globalOrder {
		allModels = append(allModels, *globalStats[key])
	}
	sortByCostDesc(allModels)
	usage.AllModels = allModels

	for _, stat := range allModels {
		usage.TotalCost += stat.Cost
		usage.TotalTokens += stat.Tokens
		usage.TotalMessages += stat.Messages
	}

	return usage
}

func sortByCostDesc(models []types.ModelStat) {
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Cost > models[j].Cost
	})
}

// contributionsFromEntries groups raw entries into per-day contribution
// records, one source row per entry, bucketed by local calendar date.
func contributionsFromEntries(entries []types.UsageEntry) []types.DayContribution {
	byDate := make(map[string]*types.DayContribution)

	for _, entry := range entries {
		if entry.Timestamp <= 0 {
			continue
		}
		date := time.UnixMilli(entry.Timestamp).Local().Format("2006-01-02")

		day, ok := byDate[date]
		if !ok {
			day = &types.DayContribution{Date: date}
			byDate[date] = day
		}

		// Cache writes fold into input for display; the cacheWrite column
		// in the breakdown stays zero.
		input := entry.Input + entry.CacheWrite
		total := input + entry.Output + entry.CacheRead + entry.Reasoning

		day.Totals.Tokens += total
		day.Totals.Cost += entry.Cost
		day.Totals.Messages++

		day.TokenBreakdown.Input += input
		day.TokenBreakdown.Output += entry.Output
		day.TokenBreakdown.CacheRead += entry.CacheRead
		day.TokenBreakdown.Reasoning += entry.Reasoning

		source := entry.Source
		if source == "" {
			source = "unknown"
		}
		model := entry.Model
		if model == "" {
			model = "unknown"
		}
		provider := entry.Provider
		if provider == "" {
			provider = "unknown"
		}

		day.Sources = append(day.Sources, types.DaySource{
			Source:     source,
			ModelID:    model,
			ProviderID: provider,
			Tokens: types.TokenBreakdown{
				Input:     input,
				Output:    entry.Output,
				CacheRead: entry.CacheRead,
				Reasoning: entry.Reasoning,
			},
			Cost:     entry.Cost,
			Messages: 1,
		})
	}

	dates := lo.Keys(byDate)
	sort.Strings(dates)

	out := make([]types.DayContribution, 0, len(dates))
	for _, date := range dates {
		out = append(out, *byDate[date])
	}
	return out
}
