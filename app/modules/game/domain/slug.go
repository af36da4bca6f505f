package gamedomain

import "strings"

// NormalizeSlug maps a raw model slug onto its read-side grouping key:
// lowercase, trimmed, with any ":variant" marker (":free", ":beta", ...) stripped.
//
// Only leaderboard/reporting code calls this. Writes are always keyed by the raw slug.
func NormalizeSlug(slug string) string {
	s := strings.ToLower(strings.TrimSpace(slug))
	if i := strings.LastIndex(s, ":"); i > 0 {
		s = s[:i]
	}
	return s
}

// ProviderFromSlug guesses the provider segment of "provider/model" style slugs.
func ProviderFromSlug(slug string) string {
	if i := strings.Index(slug, "/"); i > 0 {
		return slug[:i]
	}
	return ""
}
