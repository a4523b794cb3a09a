package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

// Every run writes new timestamped artifacts and never overwrites, so the
// data directories grow without bound until a sweep reclaims them.

// LogRetention is how long run logs are kept before SweepLogs removes them.
const LogRetention = 7 * 24 * time.Hour

// Removal is one file a sweep wants gone, with the reason it qualified.
type Removal struct {
	Path   string
	Reason string
}

// SweepArtifacts plans the retention sweep over both data directories.
// Each artifact family keeps exactly its newest file: one raw scrape per
// source type, one snapshot, one contact extraction. Files that belong to
// no family are never touched.
func SweepArtifacts(rawDir, processedDir string) ([]Removal, error) {
	var removals []Removal

	raw, err := filepath.Glob(filepath.Join(rawDir, "*.json"))
	if err != nil {
		return nil, err
	}
	families := make(map[domain.SourceType][]string)
	for _, path := range raw {
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") {
			continue
		}
		source, ok := domain.SniffSourceType(base)
		if !ok {
			continue
		}
		families[source] = append(families[source], path)
	}
	for _, members := range families {
		removals = append(removals, superseded(members)...)
	}

	for _, pattern := range []string{"knowledge_base_*.jsonl", "processed_pdf_contacts_*.jsonl"} {
		members, err := filepath.Glob(filepath.Join(processedDir, pattern))
		if err != nil {
			return nil, err
		}
		removals = append(removals, superseded(members)...)
	}

	sort.Slice(removals, func(i, j int) bool { return removals[i].Path < removals[j].Path })
	return removals, nil
}

// superseded returns every family member except the newest by mod time.
func superseded(members []string) []Removal {
	if len(members) < 2 {
		return nil
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, m := range members {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest, newestTime = m, info.ModTime()
		}
	}
	if newest == "" {
		return nil
	}
	out := make([]Removal, 0, len(members)-1)
	for _, m := range members {
		if m != newest {
			out = append(out, Removal{Path: m, Reason: "superseded by " + filepath.Base(newest)})
		}
	}
	return out
}

// SweepLogs returns the *.log files under logDir older than LogRetention.
// A missing log directory plans nothing.
func SweepLogs(logDir string, now time.Time) ([]Removal, error) {
	entries, err := os.ReadDir(logDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-LogRetention)
	var removals []Removal
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			removals = append(removals, Removal{
				Path:   filepath.Join(logDir, e.Name()),
				Reason: "older than retention",
			})
		}
	}
	sort.Slice(removals, func(i, j int) bool { return removals[i].Path < removals[j].Path })
	return removals, nil
}
