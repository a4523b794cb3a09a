// Package dedupe provides the run-scoped duplicate gate. Every candidate
// chunk, from the classifiers and from the late PDF-contact merge alike,
// passes through one Index so identical content is emitted at most once
// per pipeline run.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
)

// Index is a set of content digests scoped to one pipeline run. It is
// owned by a single goroutine for the run's duration and is not safe for
// concurrent use.
type Index struct {
	seen    map[[sha256.Size]byte]struct{}
	skipped int
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{seen: make(map[[sha256.Size]byte]struct{})}
}

// Admit records the digest of content and reports whether it was new.
// Content must already be normalized; re-submissions are rejected and
// counted as skipped duplicates.
func (i *Index) Admit(content string) bool {
	sum := sha256.Sum256([]byte(content))
	if _, dup := i.seen[sum]; dup {
		i.skipped++
		return false
	}
	i.seen[sum] = struct{}{}
	return true
}

// Seen reports whether content was already admitted, without recording or
// counting anything.
func (i *Index) Seen(content string) bool {
	_, ok := i.seen[sha256.Sum256([]byte(content))]
	return ok
}

// Len is the number of distinct contents admitted so far.
func (i *Index) Len() int { return len(i.seen) }

// Skipped is the number of duplicates rejected so far.
func (i *Index) Skipped() int { return i.skipped }

// Digest returns the hex SHA-256 of content, the same identity Admit uses.
// Downstream stages derive stable point IDs from it.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
