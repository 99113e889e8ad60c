// Package modelname canonicalizes raw model identifiers so that usage
// reported by different tools for the same underlying model merges under
// one key. Family-level aliasing is an explicit allow-list, not a
// heuristic: distinct models never collide.
package modelname

import (
	"regexp"
	"strings"
)

// Unknown is the sentinel key for empty or absent model names.
const Unknown = "unknown"

var (
	modelPrefixRe   = regexp.MustCompile(`^(models?|model)[:/]`)
	vendorPrefixRe  = regexp.MustCompile(`^antigravity-`)
	whitespaceRe    = regexp.MustCompile(`[\s_]+`)
	multiHyphenRe   = regexp.MustCompile(`-+`)
	releaseNoiseRe  = regexp.MustCompile(`-(latest|stable)$`)
	previewNoiseRe  = regexp.MustCompile(`-(preview|exp|experimental)(-[\w\d]+)?$`)
	dateSuffixRe    = regexp.MustCompile(`-(\d{4}-\d{2}-\d{2}|\d{8})$`)
	thinkingRe      = regexp.MustCompile(`-thinking$`)
	versionDotRe    = regexp.MustCompile(`-(\d)-(\d+)`)
	claudeOpusRe    = regexp.MustCompile(`^claude-opus`)
	kimiSpellingsRe = regexp.MustCompile(`k2(p|-)5`)
)

// familyAliases maps known family-level renames onto their canonical key.
// Reviewed and extended by hand; never derived automatically.
var familyAliases = map[string]string{
	"gemini-3-pro-high":    "gemini-3-pro",
	"gemini-3-pro-low":     "gemini-3-pro",
	"gemini-3-pro-preview": "gemini-3-pro",
	"o3-mini-high":         "o3-mini",
	"o3-mini-low":          "o3-mini",
	"claude-3-5-sonnet":    "claude-3.5-sonnet",
	"claude-3-7-sonnet":    "claude-3.7-sonnet",
	"k2p5":                 "k2.5",
	"k2-5":                 "k2.5",
}

var kimiCollapsed = map[string]bool{
	"k2.5":      true,
	"kimi2.5":   true,
	"kimi-2.5":  true,
	"kimi-k2p5": true,
	"kimi-k2-5": true,
}

// Normalize returns the canonical model key for cross-source merging.
// It is total: any input yields a key, with "" and whitespace mapping to
// the Unknown sentinel. The steps run in a fixed order; each feeds the
// next.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Unknown
	}

	n = strings.ReplaceAll(n, `\`, "/")
	n = modelPrefixRe.ReplaceAllString(n, "")

	// Keep only the last path segment: provider/app prefix chains like
	// openrouter/openai/gpt-4o-mini all collapse to the bare model.
	if i := strings.LastIndex(n, "/"); i >= 0 {
		n = n[i+1:]
	}

	n = vendorPrefixRe.ReplaceAllString(n, "")

	n = whitespaceRe.ReplaceAllString(n, "-")
	n = strings.Trim(multiHyphenRe.ReplaceAllString(n, "-"), "-")

	n = releaseNoiseRe.ReplaceAllString(n, "")
	n = previewNoiseRe.ReplaceAllString(n, "")
	n = dateSuffixRe.ReplaceAllString(n, "")

	// Thinking and non-thinking variants are the same model for billing.
	n = thinkingRe.ReplaceAllString(n, "")

	if alias, ok := familyAliases[n]; ok {
		n = alias
	}

	// 4-5 -> 4.5, 3-7 -> 3.7
	n = versionDotRe.ReplaceAllString(n, "-$1.$2")

	// Anthropic naming variants merge under a claude- prefix.
	n = claudeOpusRe.ReplaceAllString(n, "opus")
	if (strings.HasPrefix(n, "opus") || strings.HasPrefix(n, "sonnet")) && !strings.HasPrefix(n, "claude-") {
		n = "claude-" + n
	}

	// Every Kimi k2.5 spelling collapses to one key.
	n = kimiSpellingsRe.ReplaceAllString(n, "k2.5")
	if kimiCollapsed[n] {
		n = "kimi-k2.5"
	}
	if strings.HasPrefix(n, "kimi") &&
		(strings.Contains(n, "k2.5") || strings.Contains(n, "k2p5") || strings.Contains(n, "k2-5") || strings.Contains(n, "2.5")) {
		n = "kimi-k2.5"
	}

	if n == "" {
		return Unknown
	}
	return n
}
