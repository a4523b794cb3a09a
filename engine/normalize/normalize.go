// Package normalize provides the text cleanup applied to every field before
// it reaches chunk content or the dedup digest. Scraped records arrive with
// inconsistent whitespace, list-or-string fields, and obfuscated email
// addresses; everything funnels through here so the rest of the engine only
// ever sees one canonical form. All functions are idempotent.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var wsRun = regexp.MustCompile(`\s+`)

// Text collapses every whitespace run (spaces, tabs, newlines) to a single
// space and trims the ends. Empty input stays empty.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(wsRun.ReplaceAllString(s, " "))
}

// Any stringifies an arbitrary decoded JSON value and normalizes it.
// nil yields the empty string; lists flatten via FlattenList.
func Any(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return Text(t)
	case []any:
		return FlattenList(t)
	case []string:
		return Text(strings.Join(t, " "))
	default:
		return Text(fmt.Sprint(t))
	}
}

// FlattenList coerces a list field to one canonical string by joining
// non-empty elements with a single space. Upstream spiders capture
// multi-paragraph fields either as a string or as a line array; after
// flattening the two shapes are indistinguishable.
func FlattenList(items []any) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		s := fmt.Sprint(it)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return Text(strings.Join(parts, " "))
}

// StringList coerces a one-or-many field into a slice of normalized
// non-empty strings. A bare string becomes a single-element slice; empties
// and nils are dropped.
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := Text(t); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, it := range t {
			if it == nil {
				continue
			}
			if s := Text(fmt.Sprint(it)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		var out []string
		for _, s := range t {
			if n := Text(s); n != "" {
				out = append(out, n)
			}
		}
		return out
	default:
		if s := Text(fmt.Sprint(t)); s != "" {
			return []string{s}
		}
		return nil
	}
}

var (
	atGap  = regexp.MustCompile(`\s*@\s*`)
	dotGap = regexp.MustCompile(`\s*\.\s*`)
)

// Email undoes the obfuscations institutional pages apply to addresses:
// bracket tokens ([dot], [at] and uppercase forms), stray "Id:" label
// fragments, and whitespace wedged around '@' and '.'.
func Email(s string) string {
	s = strings.NewReplacer(
		"[dot]", ".",
		"[DOT]", ".",
		"[at]", "@",
		"[AT]", "@",
		"Id:", "",
	).Replace(s)
	s = atGap.ReplaceAllString(s, "@")
	s = dotGap.ReplaceAllString(s, ".")
	return strings.TrimSpace(s)
}
