package sources

import (
	"context"
	"time"

	"github.com/tokdash/tokdash-go/internal/pricing"
	"github.com/tokdash/tokdash-go/internal/types"
)

// AmpParser is registered so that "amp" is a selectable source, but Amp
// stores no local usage records yet. It always reports empty usage.
//
// TODO: parse ~/.amp thread files once Amp persists token counts there.
type AmpParser struct {
	root string
	db   *pricing.DB
}

func NewAmpParser(db *pricing.DB, root string) *AmpParser {
	return &AmpParser{root: root, db: db}
}

func (p *AmpParser) Name() string { return "amp" }

func (p *AmpParser) Collect(ctx context.Context, since, until time.Time) ([]types.UsageEntry, error) {
	return nil, nil
}
