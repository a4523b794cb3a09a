// Command report summarizes the newest knowledge-base snapshot: chunk
// counts per source, division coverage, CV availability, and optionally
// graph totals. It keeps a bounded delta history for the dashboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/graph"
	"github.com/SiteSageAI/sitesage-mvp/engine/pipeline"
)

// Report is the JSON summary of one snapshot.
type Report struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	Snapshot     string          `json:"snapshot"`
	Chunks       int             `json:"chunks"`
	BySource     map[string]int  `json:"by_source"`
	TopDivisions []DivisionCount `json:"top_divisions"`
	StaffWithCV  int             `json:"staff_with_cv"`
	CVCoverage   float64         `json:"cv_coverage"`
	Graph        *GraphTotals    `json:"graph,omitempty"`
}

// DivisionCount is one division's chunk presence.
type DivisionCount struct {
	Division string `json:"division"`
	Chunks   int    `json:"chunks"`
}

// GraphTotals carries live Neo4j counts when -graph is set.
type GraphTotals struct {
	Nodes         map[string]int64       `json:"nodes"`
	Relationships map[string]int64       `json:"relationships"`
	TopRosters    []graph.DivisionRoster `json:"top_rosters"`
}

// Delta represents changes between two consecutive reports.
type Delta struct {
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  string         `json:"snapshot"`
	NewChunks int            `json:"new_chunks"`
	BySource  map[string]int `json:"by_source"`
}

const (
	maxHistory   = 288
	topDivisions = 10
)

func main() {
	godotenv.Load()

	processedDir := flag.String("processed", envOr("PROCESSED_DIR", "data/processed"), "processed artifacts directory")
	snapshotPath := flag.String("snapshot", "", "snapshot path, empty picks the latest")
	outDir := flag.String("out", envOr("REPORT_DIR", "docs/data"), "output directory, empty prints to stdout only")
	withGraph := flag.Bool("graph", false, "include live Neo4j totals")
	neo4jURL := flag.String("neo4j", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j bolt URL")
	neo4jUser := flag.String("neo4j-user", envOr("NEO4J_USER", "neo4j"), "Neo4j username")
	neo4jPass := flag.String("neo4j-pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
	flag.Parse()

	path := *snapshotPath
	if path == "" {
		var err error
		path, err = pipeline.LatestSnapshot(*processedDir)
		if err != nil {
			log.Fatalf("locate snapshot: %v", err)
		}
	}

	chunks, err := pipeline.ReadChunks(path)
	if err != nil {
		log.Fatalf("read snapshot: %v", err)
	}

	report := buildReport(path, chunks, time.Now().UTC())

	if *withGraph {
		totals, err := graphTotals(*neo4jURL, *neo4jUser, *neo4jPass)
		if err != nil {
			log.Printf("graph totals unavailable: %v", err)
		} else {
			report.Graph = totals
		}
	}

	if *outDir == "" {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}

	if err := writeReport(*outDir, report); err != nil {
		log.Fatalf("write report: %v", err)
	}

	fmt.Printf("Report for %s: %d chunks across %d sources, %d staff with CV (%.0f%%)\n",
		report.Snapshot, report.Chunks, len(report.BySource),
		report.StaffWithCV, report.CVCoverage*100)
	for _, d := range report.TopDivisions {
		fmt.Printf("  %-45s %d\n", d.Division, d.Chunks)
	}
}

// buildReport computes the summary for one snapshot's chunks.
func buildReport(path string, chunks []domain.Chunk, now time.Time) Report {
	r := Report{
		GeneratedAt: now,
		Snapshot:    filepath.Base(path),
		Chunks:      len(chunks),
		BySource:    make(map[string]int),
	}

	divisions := make(map[string]int)
	staffChunks := 0
	for _, c := range chunks {
		source := metaStr(c.Metadata, "source_type")
		r.BySource[source]++

		for _, d := range chunkDivisions(c.Metadata) {
			divisions[d]++
		}

		if source == string(domain.SourceStaff) {
			staffChunks++
			if b, ok := c.Metadata["cv_available"].(bool); ok && b {
				r.StaffWithCV++
			}
		}
	}

	for d, n := range divisions {
		r.TopDivisions = append(r.TopDivisions, DivisionCount{Division: d, Chunks: n})
	}
	sort.Slice(r.TopDivisions, func(i, j int) bool {
		if r.TopDivisions[i].Chunks != r.TopDivisions[j].Chunks {
			return r.TopDivisions[i].Chunks > r.TopDivisions[j].Chunks
		}
		return r.TopDivisions[i].Division < r.TopDivisions[j].Division
	})
	if len(r.TopDivisions) > topDivisions {
		r.TopDivisions = r.TopDivisions[:topDivisions]
	}

	if staffChunks > 0 {
		r.CVCoverage = float64(r.StaffWithCV) / float64(staffChunks)
	}
	return r
}

// chunkDivisions lists the divisions a chunk references. Staff chunks
// carry a list, equipment a single name; chunks without either contribute
// nothing.
func chunkDivisions(meta map[string]any) []string {
	if list := metaList(meta, "divisions"); len(list) > 0 {
		return list
	}
	if d := metaStr(meta, "primary_division"); d != "" {
		return []string{d}
	}
	if d := metaStr(meta, "division"); d != "" {
		return []string{d}
	}
	return nil
}

func computeDelta(cur, prev Report, now time.Time) Delta {
	d := Delta{
		Timestamp: now,
		Snapshot:  cur.Snapshot,
		NewChunks: cur.Chunks - prev.Chunks,
		BySource:  make(map[string]int),
	}
	for k, v := range cur.BySource {
		d.BySource[k] = v - prev.BySource[k]
	}
	return d
}

func trimHistory(history []Delta) []Delta {
	if len(history) > maxHistory {
		return history[len(history)-maxHistory:]
	}
	return history
}

// writeReport persists the latest report, the delta history, and the
// previous-report marker used for the next delta.
func writeReport(outDir string, report Report) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	latestPath := filepath.Join(outDir, "report-latest.json")
	historyPath := filepath.Join(outDir, "report-history.json")
	prevPath := filepath.Join(outDir, ".report-prev.json")

	var prev Report
	if data, err := os.ReadFile(prevPath); err == nil {
		json.Unmarshal(data, &prev)
	}
	delta := computeDelta(report, prev, report.GeneratedAt)

	var history []Delta
	if data, err := os.ReadFile(historyPath); err == nil {
		json.Unmarshal(data, &history)
	}
	history = trimHistory(append(history, delta))

	latest, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(latestPath, latest, 0o644); err != nil {
		return err
	}
	histData, _ := json.MarshalIndent(history, "", "  ")
	if err := os.WriteFile(historyPath, histData, 0o644); err != nil {
		return err
	}
	return os.WriteFile(prevPath, latest, 0o644)
}

func graphTotals(url, user, pass string) (*GraphTotals, error) {
	ctx := context.Background()
	driver, err := neo4j.NewDriverWithContext(url, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return nil, err
	}
	defer driver.Close(ctx)

	gs := graph.New(driver)
	nodes, err := gs.NodeCounts(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := gs.RelationshipCounts(ctx)
	if err != nil {
		return nil, err
	}
	rosters, err := gs.DivisionRosters(ctx, topDivisions)
	if err != nil {
		return nil, err
	}
	return &GraphTotals{Nodes: nodes, Relationships: rels, TopRosters: rosters}, nil
}

func metaStr(meta map[string]any, key string) string {
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func metaList(meta map[string]any, key string) []string {
	switch v := meta[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
