//go:build integration

package semantic

import (
	"context"
	"os"
	"testing"
)

func qdrantAddr() string {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		return v
	}
	return "localhost:6334"
}

func testStore(t *testing.T, collection string) *VectorStore {
	t.Helper()
	vs, err := New(qdrantAddr(), collection)
	if err != nil {
		t.Fatalf("connect qdrant: %v", err)
	}
	t.Cleanup(func() {
		vs.DeleteCollection(context.Background())
		vs.Close()
	})
	return vs
}

func TestQdrant_EnsureCollection(t *testing.T) {
	vs := testStore(t, "test_ensure")
	ctx := context.Background()

	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	// Calling again should be idempotent
	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection (idempotent): %v", err)
	}
}

func TestQdrant_UpsertAndSearch(t *testing.T) {
	vs := testStore(t, "test_upsert_search")
	ctx := context.Background()

	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	records := []VectorRecord{
		{ID: PointID("staff kumar"), Embedding: []float32{1, 0, 0, 0}, Payload: map[string]any{"content": "Staff Member: A. Kumar.", "source_type": "staff"}},
		{ID: PointID("tender road"), Embedding: []float32{0, 1, 0, 0}, Payload: map[string]any{"content": "Tender: Road resurfacing.", "source_type": "tender"}},
		{ID: PointID("staff rao"), Embedding: []float32{0.9, 0.1, 0, 0}, Payload: map[string]any{"content": "Staff Member: B. Rao.", "source_type": "staff"}},
	}

	if err := vs.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Search near [1,0,0,0] should return Kumar first
	results, err := vs.Search(ctx, []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Content != "Staff Member: A. Kumar." {
		t.Fatalf("expected Kumar first, got %q", results[0].Content)
	}
	if results[0].SourceType != "staff" {
		t.Fatalf("expected staff source, got %q", results[0].SourceType)
	}
}

func TestQdrant_SearchFiltered(t *testing.T) {
	vs := testStore(t, "test_filtered")
	ctx := context.Background()

	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	records := []VectorRecord{
		{ID: PointID("staff a"), Embedding: []float32{1, 0, 0, 0}, Payload: map[string]any{"content": "Staff Member: A.", "source_type": "staff", "primary_division": "Bridge Engineering"}},
		{ID: PointID("equipment b"), Embedding: []float32{0.9, 0.1, 0, 0}, Payload: map[string]any{"content": "Equipment: Profilometer.", "source_type": "equipment", "division": "Pavement Evaluation"}},
		{ID: PointID("staff c"), Embedding: []float32{0.8, 0.2, 0, 0}, Payload: map[string]any{"content": "Staff Member: C.", "source_type": "staff", "primary_division": "Pavement Evaluation"}},
	}
	if err := vs.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Filter by source_type=staff
	results, err := vs.SearchFiltered(ctx, []float32{1, 0, 0, 0}, 10, map[string]string{"source_type": "staff"})
	if err != nil {
		t.Fatalf("SearchFiltered: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 staff results, got %d", len(results))
	}

	// Filter by division
	results, err = vs.SearchFiltered(ctx, []float32{1, 0, 0, 0}, 10, map[string]string{"primary_division": "Pavement Evaluation"})
	if err != nil {
		t.Fatalf("SearchFiltered: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestQdrant_DeleteBySource(t *testing.T) {
	vs := testStore(t, "test_delete_source")
	ctx := context.Background()

	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	records := []VectorRecord{
		{ID: PointID("tender gone"), Embedding: []float32{1, 0, 0, 0}, Payload: map[string]any{"content": "Tender: Old works.", "source_type": "tender"}},
		{ID: PointID("staff stays"), Embedding: []float32{0, 1, 0, 0}, Payload: map[string]any{"content": "Staff Member: K.", "source_type": "staff"}},
	}
	if err := vs.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := vs.DeleteBySource(ctx, "tender"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}

	results, err := vs.Search(ctx, []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.SourceType == "tender" {
			t.Fatal("deleted source still found")
		}
	}
}

func TestQdrant_DeleteAllThenReindex(t *testing.T) {
	vs := testStore(t, "test_replace")
	ctx := context.Background()

	if err := vs.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	stale := []VectorRecord{
		{ID: PointID("stale"), Embedding: []float32{1, 0, 0, 0}, Payload: map[string]any{"content": "old snapshot line", "source_type": "news"}},
	}
	if err := vs.Upsert(ctx, stale); err != nil {
		t.Fatalf("Upsert stale: %v", err)
	}

	// Full replace: wipe then load the new snapshot.
	if err := vs.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	fresh := []VectorRecord{
		{ID: PointID("fresh"), Embedding: []float32{0, 1, 0, 0}, Payload: map[string]any{"content": "new snapshot line", "source_type": "news"}},
	}
	if err := vs.Upsert(ctx, fresh); err != nil {
		t.Fatalf("Upsert fresh: %v", err)
	}

	results, err := vs.Search(ctx, []float32{0, 1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Content != "new snapshot line" {
		t.Fatalf("expected only the fresh record, got %v", results)
	}
}
