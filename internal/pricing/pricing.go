// Package pricing holds the local pricing database (rates per 1M tokens)
// and the layered fallback resolution from raw model identifiers to price
// records. Resolution failures are not errors: unknown models cost 0.0.
package pricing

import (
	_ "embed"
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"sync"
)

//go:embed db.json
var embeddedDB []byte

// Record is a fully materialized price record in USD per 1M tokens.
// Defaults are applied at load time: cache reads at 10% of the input
// rate, cache writes at the input rate.
type Record struct {
	Input      float64
	Output     float64
	CacheRead  float64
	CacheWrite float64
}

type rawRecord struct {
	Input      float64  `json:"input"`
	Output     float64  `json:"output"`
	CacheRead  *float64 `json:"cache_read"`
	CacheWrite *float64 `json:"cache_write"`
}

type rawTable struct {
	Models  map[string]json.RawMessage `json:"models"`
	Aliases map[string]string          `json:"aliases"`
}

// DB is the process-lifetime pricing table plus a memoized resolution
// cache keyed by the exact raw model string. It is safe for concurrent
// read-mostly use; cache entries are idempotently recomputed, so a lost
// write only costs a repeat lookup.
type DB struct {
	pricing map[string]Record
	aliases map[string]string

	mu       sync.RWMutex
	resolved map[string]*Record // nil value records a negative result
}

// Default loads the pricing table shipped with the binary.
func Default() *DB {
	return newDB(embeddedDB)
}

// Load reads a pricing table from path. An empty path falls back to the
// embedded table; a missing or malformed file yields an empty table (all
// costs resolve to 0.0) rather than an error.
func Load(path string) *DB {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return newDB(nil)
	}
	return newDB(data)
}

func newDB(data []byte) *DB {
	db := &DB{
		pricing:  make(map[string]Record),
		aliases:  make(map[string]string),
		resolved: make(map[string]*Record),
	}
	if len(data) == 0 {
		return db
	}

	var raw rawTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return db
	}

	for key, msg := range raw.Models {
		var rec rawRecord
		// Non-object sentinel/comment entries are skipped.
		if err := json.Unmarshal(msg, &rec); err != nil {
			continue
		}
		db.pricing[key] = materialize(rec)
	}

	for key, target := range raw.Aliases {
		nk := normalizeAliasKey(key)
		nv := normalizeKey(target)
		if nk == "" || nv == "" {
			continue
		}
		db.aliases[nk] = nv
		// Allow lookups by the bare model name too.
		base := nk
		if i := strings.LastIndex(nk, "/"); i >= 0 {
			base = nk[i+1:]
		}
		if _, ok := db.aliases[base]; !ok {
			db.aliases[base] = nv
		}
	}

	return db
}

func materialize(rec rawRecord) Record {
	out := Record{
		Input:      rec.Input,
		Output:     rec.Output,
		CacheRead:  rec.Input * 0.1,
		CacheWrite: rec.Input,
	}
	if rec.CacheRead != nil {
		out.CacheRead = *rec.CacheRead
	}
	if rec.CacheWrite != nil {
		out.CacheWrite = *rec.CacheWrite
	}
	return out
}

var (
	keyModelPrefixRe      = regexp.MustCompile(`^(models?|model)[:/]`)
	aliasKeyModelPrefixRe = regexp.MustCompile(`^(models?|model):`)
	keyWhitespaceRe       = regexp.MustCompile(`[\s_]+`)
	keyMultiHyphenRe      = regexp.MustCompile(`-+`)
	keyReleaseSuffixRe    = regexp.MustCompile(`-(latest|stable)$`)
	keyDateSuffixRe       = regexp.MustCompile(`-(\d{4}-\d{2}-\d{2}|\d{8})$`)
	keyThinkingSuffixRe   = regexp.MustCompile(`-thinking$`)
	keyVersionDotRe       = regexp.MustCompile(`-(\d)-(\d+)`)
)

// normalizeKey flattens a model identifier to its bare, hyphenated form.
// This is deliberately not the same algorithm as modelname.Normalize:
// pricing lookup keeps its own, narrower normalization (no family
// aliasing, no Anthropic prefix rewriting).
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, `\`, "/")
	s = keyModelPrefixRe.ReplaceAllString(s, "")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = keyWhitespaceRe.ReplaceAllString(s, "-")
	return strings.Trim(keyMultiHyphenRe.ReplaceAllString(s, "-"), "-")
}

// normalizeAliasKey normalizes like normalizeKey but preserves the
// provider/model structure, since alias keys may be provider-scoped.
func normalizeAliasKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, `\`, "/")
	s = aliasKeyModelPrefixRe.ReplaceAllString(s, "")
	s = keyWhitespaceRe.ReplaceAllString(s, "-")
	return strings.Trim(keyMultiHyphenRe.ReplaceAllString(s, "-"), "-")
}

func stripCommonSuffixes(key string) string {
	key = keyReleaseSuffixRe.ReplaceAllString(key, "")
	key = keyDateSuffixRe.ReplaceAllString(key, "")
	return keyThinkingSuffixRe.ReplaceAllString(key, "")
}

func versionHyphenToDot(key string) string {
	return keyVersionDotRe.ReplaceAllString(key, "-$1.$2")
}

// kimiAliases returns extra candidates for Kimi / K2.5 naming variants.
// Separate from the reporting-side Kimi collapse on purpose.
func kimiAliases(key string) []string {
	switch key {
	case "k2.5", "k2-5", "k2p5", "kimi2.5", "kimi-k2p5", "kimi-k2-5":
		return []string{"k2p5", "kimi-k2.5"}
	}
	if strings.HasPrefix(key, "kimi") &&
		(strings.Contains(key, "k2.5") || strings.Contains(key, "k2p5") || strings.Contains(key, "k2-5")) {
		return []string{"k2p5", "kimi-k2.5"}
	}
	return nil
}

// suffixVariants expands one candidate into its suffix-stripped and
// version-dotted derivations, original first.
func suffixVariants(key string) []string {
	return []string{
		key,
		stripCommonSuffixes(key),
		versionHyphenToDot(key),
		versionHyphenToDot(stripCommonSuffixes(key)),
	}
}

// Resolve finds the best price record for a raw model identifier through
// the layered fallback search: direct keys, then alias-indirected keys,
// then normalized/expanded keys. Results, including misses, are memoized
// per raw string.
func (db *DB) Resolve(model string) (Record, bool) {
	db.mu.RLock()
	if cached, ok := db.resolved[model]; ok {
		db.mu.RUnlock()
		if cached == nil {
			return Record{}, false
		}
		return *cached, true
	}
	db.mu.RUnlock()

	rec, ok := db.resolve(model)

	db.mu.Lock()
	if ok {
		r := rec
		db.resolved[model] = &r
	} else {
		db.resolved[model] = nil
	}
	db.mu.Unlock()

	return rec, ok
}

func (db *DB) resolve(model string) (Record, bool) {
	raw := model
	base := raw
	if i := strings.LastIndex(raw, "/"); i >= 0 && raw[i+1:] != "" {
		base = raw[i+1:]
	}

	seen := make(map[string]bool)
	probe := func(key string) (Record, bool) {
		if key == "" || seen[key] {
			return Record{}, false
		}
		seen[key] = true
		rec, ok := db.pricing[key]
		return rec, ok
	}

	// Stage 1: the raw string and its base name, straight against the
	// pricing table. Covers exact DB matches.
	for _, k := range []string{raw, base} {
		if rec, ok := probe(k); ok {
			return rec, true
		}
	}

	// Stage 2: alias-table lookup over structure-preserving variants of
	// the raw string; a hit maps through to the pricing table.
	aliasKeys := []string{
		raw,
		base,
		normalizeAliasKey(raw),
		normalizeAliasKey(base),
		normalizeKey(raw),
		normalizeKey(base),
	}
	for _, ak := range aliasKeys {
		if ak == "" {
			continue
		}
		for _, variant := range suffixVariants(ak) {
			target, ok := db.aliases[variant]
			if !ok {
				continue
			}
			if rec, ok := probe(target); ok {
				return rec, true
			}
		}
	}

	// Stage 3: fully normalized candidates, expanded with suffix, version
	// and vendor-prefix derivations plus Kimi spellings.
	var expanded []string
	for _, k := range []string{normalizeKey(raw), normalizeKey(base)} {
		if k == "" {
			continue
		}
		expanded = append(expanded, suffixVariants(k)...)
		if trimmed, ok := strings.CutPrefix(k, "antigravity-"); ok {
			expanded = append(expanded, suffixVariants(trimmed)...)
		}
		expanded = append(expanded, kimiAliases(k)...)
		expanded = append(expanded, kimiAliases(stripCommonSuffixes(k))...)
	}
	for _, k := range expanded {
		if rec, ok := probe(k); ok {
			return rec, true
		}
	}

	return Record{}, false
}

// Cost prices one usage event. The input rate applies to raw (fresh)
// input tokens only; cache writes are priced at their own rate. This is
// the per-dimension pricing convention, distinct from the reporting
// convention that folds cache writes into tokens_in. Unresolvable models
// cost 0.0.
func (db *DB) Cost(model string, inputTokens, outputTokens, cacheRead, cacheWrite int) float64 {
	rec, ok := db.Resolve(model)
	if !ok {
		return 0.0
	}
	return (float64(inputTokens)*rec.Input +
		float64(outputTokens)*rec.Output +
		float64(cacheRead)*rec.CacheRead +
		float64(cacheWrite)*rec.CacheWrite) / 1_000_000
}
