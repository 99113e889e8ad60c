package types

// UsageEntry is one billing-relevant event emitted by a source parser:
// a single assistant message or token-count turn, with its token
// dimensions split out and a cost already resolved at parse time.
//
// The JSON field names are the tokscale-compatible wire form that the
// aggregation layer consumes.
type UsageEntry struct {
	Source     string  `json:"source"`
	Model      string  `json:"model"`
	Provider   string  `json:"provider"`
	Input      int     `json:"input"`
	Output     int     `json:"output"`
	CacheRead  int     `json:"cacheRead"`
	CacheWrite int     `json:"cacheWrite"`
	Reasoning  int     `json:"reasoning"`
	Cost       float64 `json:"cost"`
	// Timestamp is epoch milliseconds, UTC.
	Timestamp int64 `json:"timestamp"`
	// MessageCount is how many logical messages this entry represents.
	// Parsers emit one entry per message and leave it at 0, which the
	// aggregator treats as 1; pre-aggregated inputs may set it higher.
	MessageCount int `json:"messageCount,omitempty"`
}

// TotalTokens reports the entry's billable token total under reporting
// semantics: cache writes count as input, cache reads as cache.
func (e UsageEntry) TotalTokens() int {
	return e.Input + e.CacheWrite + e.Output + e.CacheRead
}

// ModelStat is the running aggregate for one (source, model) pair, or for
// one canonical model in the combined view. TokensIn already includes
// cache-write tokens; TokensCache is cache reads.
type ModelStat struct {
	Source      string  `json:"source,omitempty"`
	Name        string  `json:"name"`
	Tokens      int     `json:"tokens"`
	TokensIn    int     `json:"tokens_in"`
	TokensOut   int     `json:"tokens_out"`
	TokensCache int     `json:"tokens_cache"`
	Cost        float64 `json:"cost"`
	Messages    int     `json:"messages"`
}

// HasVisibleUsage reports whether the row should appear in display lists:
// at least one token dimension must be nonzero. TokensIn covers input and
// cache writes, TokensCache covers cache reads, so the three collapsed
// sums cover all four dimensions.
func (s ModelStat) HasVisibleUsage() bool {
	return s.TokensIn+s.TokensOut+s.TokensCache > 0
}

// AppUsage is the aggregate for one source tool plus its per-model
// breakdown, sorted by cost descending.
type AppUsage struct {
	Tokens      int         `json:"tokens"`
	TokensIn    int         `json:"tokens_in"`
	TokensOut   int         `json:"tokens_out"`
	TokensCache int         `json:"tokens_cache"`
	Cost        float64     `json:"cost"`
	Messages    int         `json:"messages"`
	Models      []ModelStat `json:"models"`
}

// ToolTotals is the by_tool summary line for one source.
type ToolTotals struct {
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// CodingUsage is the aggregate of all coding-tool entries for one period,
// before merging with the session-log source.
type CodingUsage struct {
	TotalCost     float64              `json:"total_cost"`
	TotalTokens   int                  `json:"total_tokens"`
	TotalMessages int                  `json:"total_messages"`
	Apps          map[string]*AppUsage `json:"apps"`
	AllModels     []ModelStat          `json:"all_models"`
}

// SessionUsage is what the session-log (openclaw) source produces for one
// period: grand totals, per-model stats keyed by provider/model, and the
// per-day contribution series.
type SessionUsage struct {
	TotalTokens   int                  `json:"total_tokens"`
	TotalCost     float64              `json:"total_cost"`
	TotalMessages int                  `json:"total_messages"`
	Models        map[string]ModelStat `json:"models"`
	Contributions []DayContribution    `json:"contributions"`
}

// UsageSnapshot is the combined aggregated usage object served over HTTP
// and printed by the CLI. Field names are a de facto wire contract.
type UsageSnapshot struct {
	Period         string                `json:"period"`
	TotalTokens    int                   `json:"total_tokens"`
	TotalCost      float64               `json:"total_cost"`
	ByTool         map[string]ToolTotals `json:"by_tool"`
	Apps           map[string]*AppUsage  `json:"apps"`
	CodingApps     map[string]*AppUsage  `json:"coding_apps"`
	CodingModels   []ModelStat           `json:"coding_models"`
	TopModels      []ModelStat           `json:"top_models"`
	OpenclawModels []ModelStat           `json:"openclaw_models"`
	CombinedModels []ModelStat           `json:"combined_models"`
	Timestamp      string                `json:"timestamp"`
}
