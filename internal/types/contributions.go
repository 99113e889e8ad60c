package types

// DayTotals are the combined totals for one calendar day.
type DayTotals struct {
	Tokens   int     `json:"tokens"`
	Cost     float64 `json:"cost"`
	Messages int     `json:"messages"`
}

// TokenBreakdown splits a day's tokens by dimension. Input includes
// cache-write tokens under reporting semantics.
type TokenBreakdown struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	CacheRead  int `json:"cacheRead"`
	CacheWrite int `json:"cacheWrite"`
	Reasoning  int `json:"reasoning"`
}

// DaySource is one model's share of a day, attributed to the tool that
// produced it.
type DaySource struct {
	Source     string         `json:"source"`
	ModelID    string         `json:"modelId"`
	ProviderID string         `json:"providerId"`
	Tokens     TokenBreakdown `json:"tokens"`
	Cost       float64        `json:"cost"`
	Messages   int            `json:"messages"`
}

// DayContribution is one calendar day in the heatmap series. Date is the
// local calendar date (YYYY-MM-DD) of the underlying messages. Intensity
// is a bucketed display signal, not an additive quantity; merging two
// series takes the maximum, not the sum.
type DayContribution struct {
	Date           string         `json:"date"`
	Totals         DayTotals      `json:"totals"`
	Intensity      int            `json:"intensity"`
	TokenBreakdown TokenBreakdown `json:"tokenBreakdown"`
	Sources        []DaySource    `json:"sources"`
}

// StatsSummary is the headline block of the stats report.
type StatsSummary struct {
	TotalTokens int     `json:"totalTokens"`
	TotalCost   float64 `json:"totalCost"`
	ActiveDays  int     `json:"activeDays"`
	TotalDays   int     `json:"totalDays"`
}

// StatsDetail carries the flat stats block. Streak fields are reserved
// for an external collaborator and are always zero here.
type StatsDetail struct {
	FavoriteModel string `json:"favorite_model"`
	TotalTokens   int    `json:"total_tokens"`
	Sessions      int    `json:"sessions"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	ActiveDays    int    `json:"active_days"`
	TotalDays     int    `json:"total_days"`
}

// StatsMeta identifies how the report was produced.
type StatsMeta struct {
	Source string `json:"source"`
}

// StatsReport is the contribution-calendar object served by /api/stats.
type StatsReport struct {
	Meta          StatsMeta         `json:"meta"`
	Summary       StatsSummary      `json:"summary"`
	Contributions []DayContribution `json:"contributions"`
	Stats         StatsDetail       `json:"stats"`
	Timestamp     string            `json:"timestamp"`
}
