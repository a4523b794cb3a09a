package semantic

import (
	"testing"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

func TestPointID_DeterministicOnContent(t *testing.T) {
	a := PointID("Staff Member: A. Kumar. Primary Division: Bridge Engineering.")
	b := PointID("Staff Member: A. Kumar. Primary Division: Bridge Engineering.")
	if a != b {
		t.Fatalf("same content produced different ids: %s vs %s", a, b)
	}
	c := PointID("Staff Member: B. Rao. Primary Division: Bridge Engineering.")
	if a == c {
		t.Fatal("different content produced the same id")
	}
}

func TestPointID_IsUUID(t *testing.T) {
	id := PointID("Tender: Road resurfacing.")
	if len(id) != 36 {
		t.Fatalf("expected canonical uuid, got %q", id)
	}
}

func TestPayload_MergesContentAndMetadata(t *testing.T) {
	chunk := domain.Chunk{
		Content: "Event: Annual open day.",
		Metadata: map[string]any{
			"source_type": "event",
			"event_title": "Annual open day",
		},
	}
	p := Payload(chunk)
	if p["content"] != "Event: Annual open day." {
		t.Errorf("content = %v", p["content"])
	}
	if p["source_type"] != "event" {
		t.Errorf("source_type = %v", p["source_type"])
	}
	if p["event_title"] != "Annual open day" {
		t.Errorf("event_title = %v", p["event_title"])
	}
	// The source chunk must not be mutated.
	if _, ok := chunk.Metadata["content"]; ok {
		t.Error("Payload wrote into the chunk metadata")
	}
}

func TestPayload_NilMetadata(t *testing.T) {
	p := Payload(domain.Chunk{Content: "x"})
	if p["content"] != "x" {
		t.Errorf("content = %v", p["content"])
	}
	if len(p) != 1 {
		t.Errorf("expected only content, got %v", p)
	}
}
