// Command cleanup reclaims disk from old pipeline artifacts. Every run
// writes new timestamped files and never overwrites, so without a sweep
// the data directories grow forever. The sweep keeps the newest file of
// each artifact family and removes run logs past retention.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/SiteSageAI/sitesage-mvp/engine/pipeline"
)

func main() {
	godotenv.Load()

	rawDir := flag.String("raw", envOr("RAW_DIR", "data/raw"), "raw scrape directory")
	processedDir := flag.String("processed", envOr("PROCESSED_DIR", "data/processed"), "processed artifacts directory")
	logDir := flag.String("logs", envOr("LOG_DIR", "logs"), "run log directory")
	dryRun := flag.Bool("dry-run", false, "plan only, remove nothing")
	flag.Parse()

	removals, err := pipeline.SweepArtifacts(*rawDir, *processedDir)
	if err != nil {
		log.Fatalf("plan artifact sweep: %v", err)
	}
	logRemovals, err := pipeline.SweepLogs(*logDir, time.Now())
	if err != nil {
		log.Fatalf("plan log sweep: %v", err)
	}
	removals = append(removals, logRemovals...)

	if len(removals) == 0 {
		fmt.Println("Nothing to clean up.")
		return
	}

	var removed, failed int
	for _, r := range removals {
		if *dryRun {
			fmt.Printf("would remove %s (%s)\n", r.Path, r.Reason)
			continue
		}
		if err := os.Remove(r.Path); err != nil {
			log.Printf("remove %s: %v", r.Path, err)
			failed++
			continue
		}
		fmt.Printf("removed %s (%s)\n", r.Path, r.Reason)
		removed++
	}

	if *dryRun {
		fmt.Printf("Dry run: %d files would be removed.\n", len(removals))
		return
	}
	fmt.Printf("Cleanup complete: %d removed, %d failed.\n", removed, failed)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
