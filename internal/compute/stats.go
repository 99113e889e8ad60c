package compute

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tokdash/tokdash-go/internal/types"
)

// Stats builds the contribution-calendar report. A zero year means the
// trailing 365 days; otherwise one local calendar year.
func (e *Engine) Stats(ctx context.Context, year int) types.StatsReport {
	var sessionData types.SessionUsage
	var since, until time.Time
	if year > 0 {
		sessionData = e.session.UsageForYear(year)
		since, until = yearRange(year, e.now().Location())
	} else {
		sessionData = e.session.UsageForDays(365)
		since, until = periodRange("365", e.now())
	}

	entries := e.tracker.Collect(ctx, since, until)
	codingContribs := contributionsFromEntries(entries)

	// The session source already contributes these days; drop any
	// same-named rows a coding parser might have produced.
	for i := range codingContribs {
		kept := codingContribs[i].Sources[:0]
		for _, src := range codingContribs[i].Sources {
			if strings.EqualFold(src.Source, e.session.Name()) {
				continue
			}
			kept = append(kept, src)
		}
		codingContribs[i].Sources = kept
	}

	merged := mergeContributions(sessionData.Contributions, codingContribs)

	report := types.StatsReport{
		Meta:          types.StatsMeta{Source: "merged"},
		Contributions: merged,
		Timestamp:     e.now().Format(time.RFC3339),
	}

	for _, day := range merged {
		report.Summary.TotalTokens += day.Totals.Tokens
		report.Summary.TotalCost += day.Totals.Cost
		report.Stats.Sessions += day.Totals.Messages
	}
	report.Summary.ActiveDays = len(merged)
	report.Summary.TotalDays = daySpan(merged)

	report.Stats.FavoriteModel = favoriteModel(merged)
	report.Stats.TotalTokens = report.Summary.TotalTokens
	report.Stats.ActiveDays = report.Summary.ActiveDays
	report.Stats.TotalDays = report.Summary.TotalDays

	return report
}

// mergeContributions joins two per-day series on date. Numeric totals
// add; intensity is a display bucket and takes the maximum.
func mergeContributions(a, b []types.DayContribution) []types.DayContribution {
	aByDate := make(map[string]types.DayContribution, len(a))
	for _, day := range a {
		aByDate[day.Date] = day
	}
	bByDate := make(map[string]types.DayContribution, len(b))
	for _, day := range b {
		bByDate[day.Date] = day
	}

	dates := lo.Uniq(append(lo.Keys(aByDate), lo.Keys(bByDate)...))
	sort.Strings(dates)

	merged := make([]types.DayContribution, 0, len(dates))
	for _, date := range dates {
		dayA, okA := aByDate[date]
		dayB, okB := bByDate[date]
		switch {
		case okA && okB:
			merged = append(merged, types.DayContribution{
				Date: date,
				Totals: types.DayTotals{
					Tokens:   dayA.Totals.Tokens + dayB.Totals.Tokens,
					Cost:     dayA.Totals.Cost + dayB.Totals.Cost,
					Messages: dayA.Totals.Messages + dayB.Totals.Messages,
				},
				Intensity: max(dayA.Intensity, dayB.Intensity),
				TokenBreakdown: types.TokenBreakdown{
					Input:      dayA.TokenBreakdown.Input + dayB.TokenBreakdown.Input,
					Output:     dayA.TokenBreakdown.Output + dayB.TokenBreakdown.Output,
					CacheRead:  dayA.TokenBreakdown.CacheRead + dayB.TokenBreakdown.CacheRead,
					CacheWrite: dayA.TokenBreakdown.CacheWrite + dayB.TokenBreakdown.CacheWrite,
					Reasoning:  dayA.TokenBreakdown.Reasoning + dayB.TokenBreakdown.Reasoning,
				},
				Sources: append(append([]types.DaySource(nil), dayA.Sources...), dayB.Sources...),
			})
		case okA:
			merged = append(merged, dayA)
		default:
			merged = append(merged, dayB)
		}
	}
	return merged
}

// favoriteModel is the model with the highest summed cost across every
// day's sources; the first model to reach the maximum wins ties. "N/A"
// when there are no sources at all.
func favoriteModel(days []types.DayContribution) string {
	costs := make(map[string]float64)
	var order []string
	for _, day := range days {
		for _, src := range day.Sources {
			if _, ok := costs[src.ModelID]; !ok {
				order = append(order, src.ModelID)
			}
			costs[src.ModelID] += src.Cost
		}
	}
	if len(order) == 0 {
		return "N/A"
	}
	best := order[0]
	for _, model := range order[1:] {
		if costs[model] > costs[best] {
			best = model
		}
	}
	return best
}

// daySpan is the inclusive day count between the first and last active
// dates.
func daySpan(days []types.DayContribution) int {
	if len(days) == 0 {
		return 0
	}
	first, err1 := time.Parse("2006-01-02", days[0].Date)
	last, err2 := time.Parse("2006-01-02", days[len(days)-1].Date)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(last.Sub(first).Hours()/24) + 1
}
