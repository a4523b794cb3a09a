package ingest

import (
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/normalize"
)

// RawRecord is one scraped record as decoded from a source file. Fields
// frequently arrive absent, null, or with drifting types (a string here, a
// list there), so values stay untyped until they pass through normalize.
type RawRecord map[string]any

// Text returns the normalized string form of a field; absent and null both
// yield "".
func (r RawRecord) Text(key string) string {
	return normalize.Any(r[key])
}

// TextOr returns the normalized field, or the default when the key is
// absent entirely. A present-but-empty value stays empty; upstream scrapers
// distinguish "never published" from "published blank".
func (r RawRecord) TextOr(key, def string) string {
	v, ok := r[key]
	if !ok {
		return def
	}
	return normalize.Any(v)
}

// List coerces a one-or-many field into normalized non-empty strings.
func (r RawRecord) List(key string) []string {
	return normalize.StringList(r[key])
}

// SourceURL resolves the record's source URL by presence chaining over the
// given keys, falling back to "unknown".
func (r RawRecord) SourceURL(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return normalize.Any(v)
		}
	}
	return "unknown"
}

// ScrapedAt returns the record's own capture timestamp, or now in UTC
// ISO-8601 when the record carries none.
func (r RawRecord) ScrapedAt(now time.Time) string {
	if v, ok := r["scraped_at"]; ok {
		return normalize.Any(v)
	}
	return now.UTC().Format(time.RFC3339)
}

// normalizeContent is the final cleanup applied to assembled chunk text.
func normalizeContent(s string) string {
	return normalize.Text(s)
}

// nonNil substitutes an allocated empty slice for nil so metadata lists
// serialize as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
