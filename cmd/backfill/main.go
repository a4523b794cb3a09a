// Command backfill repairs the directory graph: it finds Person and
// Equipment nodes whose division edge is missing but whose stored
// division property still names one, and restores the MEMBER_OF or
// HOUSED_IN link, creating the Division node if needed.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/SiteSageAI/sitesage-mvp/engine/graph"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	neo4jURL := envOr("NEO4J_URL", "neo4j://localhost:7687")
	neo4jUser := envOr("NEO4J_USER", "neo4j")
	neo4jPass := envOr("NEO4J_PASS", "password")

	driver, err := neo4j.NewDriverWithContext(neo4jURL, neo4j.BasicAuth(neo4jUser, neo4jPass, ""))
	if err != nil {
		log.Fatalf("neo4j connect: %v", err)
	}
	defer driver.Close(ctx)

	gs := graph.New(driver)
	builder := graph.NewBuilder(gs)

	orphans, err := builder.FindOrphans(ctx)
	if err != nil {
		log.Fatalf("query orphans: %v", err)
	}
	log.Printf("Found %d orphaned directory nodes", len(orphans))

	var linked, errors int
	for i, o := range orphans {
		if err := builder.LinkOrphan(ctx, o); err != nil {
			log.Printf("[%d] link %s %q to %q: %v", i, o.Label, o.Name, o.Division, err)
			errors++
			continue
		}
		linked++
		if linked%100 == 0 {
			log.Printf("Progress: %d linked, %d errors (of %d)", linked, errors, len(orphans))
		}
	}

	log.Printf("Done! Linked: %d, Errors: %d, Total: %d", linked, errors, len(orphans))

	// Verify nothing is left dangling.
	remaining, err := builder.FindOrphans(ctx)
	if err == nil {
		log.Printf("Remaining orphaned nodes: %d", len(remaining))
	}

	rels, err := gs.RelationshipCounts(ctx)
	if err == nil {
		var total int64
		for _, n := range rels {
			total += n
		}
		log.Printf("Total relationships now: %d", total)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
