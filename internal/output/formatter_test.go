package output

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokdash/tokdash-go/internal/types"
)

func TestFormatNumberWithCommas(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{27155, "27,155"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumberWithCommas(tt.n))
	}
}

func TestFormatLargeNumberZero(t *testing.T) {
	assert.Equal(t, "-", formatLargeNumber(0))
	assert.Equal(t, "1,000", formatLargeNumber(1000))
}

func sampleSnapshot() types.UsageSnapshot {
	return types.UsageSnapshot{
		Period:      "week",
		TotalTokens: 27155,
		TotalCost:   1.23,
		ByTool: map[string]types.ToolTotals{
			"claude":   {Tokens: 27000, Cost: 1.0},
			"openclaw": {Tokens: 155, Cost: 0.23},
		},
		TopModels: []types.ModelStat{
			{Name: "claude-sonnet-4-5", Tokens: 27155, TokensIn: 27005, TokensOut: 50, TokensCache: 100, Cost: 1.23, Messages: 3},
		},
	}
}

func TestFormatUsage(t *testing.T) {
	out := NewFormatter(true).FormatUsage(sampleSnapshot())
	assert.Contains(t, out, "Token Usage - week")
	assert.Contains(t, out, "claude")
	assert.Contains(t, out, "openclaw")
	assert.Contains(t, out, "27,155")
	assert.Contains(t, out, "$1.23")
	assert.Contains(t, out, "claude-sonnet-4-5")
}

func TestFormatUsageEmpty(t *testing.T) {
	out := NewFormatter(true).FormatUsage(types.UsageSnapshot{Period: "today"})
	assert.Contains(t, out, "No usage recorded")
}

func TestFormatStats(t *testing.T) {
	report := types.StatsReport{
		Summary: types.StatsSummary{TotalTokens: 5000, TotalCost: 0.5, ActiveDays: 2, TotalDays: 3},
		Stats:   types.StatsDetail{FavoriteModel: "claude-sonnet-4-5", Sessions: 7},
		Contributions: []types.DayContribution{
			{Date: "2026-08-18", Totals: types.DayTotals{Tokens: 2000, Cost: 0.2, Messages: 3}},
			{Date: "2026-08-20", Totals: types.DayTotals{Tokens: 3000, Cost: 0.3, Messages: 4}},
		},
	}
	out := NewFormatter(true).FormatStats(report)
	assert.Contains(t, out, "5,000")
	assert.Contains(t, out, "claude-sonnet-4-5")
	assert.Contains(t, out, "2026-08-18")
	assert.Contains(t, out, "2 of 3")
}

func TestFormatJSON(t *testing.T) {
	out, err := NewFormatter(true).FormatJSON(sampleSnapshot())
	require.NoError(t, err)

	var round types.UsageSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &round))
	assert.Equal(t, "week", round.Period)
	assert.Equal(t, 27155, round.TotalTokens)
}
