package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

// OpenCodeParser reads OpenCode's local SQLite database. Only the
// database is consulted: the JSON file store under storage/message holds
// the same logical messages, and reading both would double every count.
type OpenCodeParser struct {
	dbPath string
	db     *pricing.DB
}

func NewOpenCodeParser(db *pricing.DB, dbPath string) *OpenCodeParser {
	return &OpenCodeParser{dbPath: dbPath, db: db}
}

func (p *OpenCodeParser) Name() string { return "opencode" }

type openCodeMessage struct {
	ModelID    string `json:"modelID"`
	ProviderID string `json:"providerID"`
	Tokens     *struct {
		Input     int `json:"input"`
		Output    int `json:"output"`
		Reasoning int `json:"reasoning"`
		Cache     struct {
			Read  int `json:"read"`
			Write int `json:"write"`
		} `json:"cache"`
	} `json:"tokens"`
}

func (p *OpenCodeParser) Collect(ctx context.Context, since, until time.Time) ([]types.UsageEntry, error) {
	if _, err := os.Stat(p.dbPath); err != nil {
		return nil, nil
	}

	conn, err := sql.Open("sqlite3", "file:"+p.dbPath+"?mode=ro")
	if err != nil {
		return nil, types.SourceError{Source: p.Name(), Err: err}
	}
	defer conn.Close()

	sinceMS := int64(0)
	if !since.IsZero() {
		sinceMS = since.UnixMilli()
	}
	untilMS := int64(9_999_999_999_999)
	if !until.IsZero() {
		untilMS = until.UnixMilli()
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT data, time_created FROM message WHERE time_created >= ? AND time_created < ? ORDER BY time_created`,
		sinceMS, untilMS)
	if err != nil {
		return nil, types.SourceError{Source: p.Name(), Err: err}
	}
	defer rows.Close()

	var out []types.UsageEntry
	for rows.Next() {
		var data string
		var tsMS int64
		if err := rows.Scan(&data, &tsMS); err != nil {
			continue
		}

		var msg openCodeMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil || msg.Tokens == nil {
			continue
		}

		model := msg.ModelID
		if model == "" {
			model = "unknown"
		}
		tokens := msg.Tokens

		out = append(out, types.UsageEntry{
			Source:     p.Name(),
			Model:      model,
			Provider:   msg.ProviderID,
			Input:      tokens.Input,
			Output:     tokens.Output,
			CacheRead:  tokens.Cache.Read,
			CacheWrite: tokens.Cache.Write,
			Reasoning:  tokens.Reasoning,
			Cost:       p.db.Cost(model, tokens.Input, tokens.Output, tokens.Cache.Read, tokens.Cache.Write),
			Timestamp:  tsMS,
		})
	}
	return out, rows.Err()
}
