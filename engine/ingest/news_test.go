package ingest

import "testing"

func TestNews_PrefersFullContent(t *testing.T) {
	r := testRun()
	chunks := r.News([]RawRecord{{
		"headline":      "Institute signs MoU with state highway agency",
		"brief_summary": "Short version.",
		"full_content":  "The institute signed a memorandum covering pavement monitoring.",
		"url":           "https://example.org/news/1",
	}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "News: Institute signs MoU with state highway agency. " +
		"The institute signed a memorandum covering pavement monitoring."
	if chunks[0].Content != want {
		t.Errorf("content = %q, want %q", chunks[0].Content, want)
	}
	if chunks[0].Metadata["has_full_content"] != true {
		t.Errorf("has_full_content = %v", chunks[0].Metadata["has_full_content"])
	}
}

func TestNews_FallsBackToSummary(t *testing.T) {
	r := testRun()
	chunks := r.News([]RawRecord{{
		"headline":      "Annual day celebrated",
		"brief_summary": "The annual day was celebrated on campus.",
	}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata["has_full_content"] != false {
		t.Errorf("has_full_content = %v", chunks[0].Metadata["has_full_content"])
	}
}

func TestNews_NoContentSkipped(t *testing.T) {
	r := testRun()
	chunks := r.News([]RawRecord{{"headline": "Headline only"}})
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if r.Stats.NoContent != 1 {
		t.Errorf("no content = %d, want 1", r.Stats.NoContent)
	}
}

func TestNews_MissingHeadlineSkipped(t *testing.T) {
	r := testRun()
	chunks := r.News([]RawRecord{{"brief_summary": "orphan body"}})
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if r.Stats.MissingIdentity != 1 {
		t.Errorf("missing identity = %d, want 1", r.Stats.MissingIdentity)
	}
}

func TestNews_ExpiredBidNoticeDropped(t *testing.T) {
	r := testRun()
	chunks := r.News([]RawRecord{{
		"headline":      "EOI for supply of laboratory equipment",
		"brief_summary": "Expressions invited. Last date for submission: 15 Jan 2020.",
	}})
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if r.Stats.Expired != 1 {
		t.Errorf("expired = %d, want 1", r.Stats.Expired)
	}
}

func TestNews_LiveBidNoticeKept(t *testing.T) {
	r := testRun()
	chunks := r.News([]RawRecord{{
		"headline":      "Tender notice for road survey vehicles",
		"brief_summary": "Bids invited. Deadline: 15 Jan 2099.",
	}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestNews_OrdinaryHeadlineSkipsDeadlineCheck(t *testing.T) {
	r := testRun()
	// The body mentions an old deadline but the headline is not a bid
	// announcement, so the item stays.
	chunks := r.News([]RawRecord{{
		"headline":      "Workshop report published",
		"brief_summary": "Registration deadline was 15 Jan 2020; the report is now out.",
	}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if r.Stats.Expired != 0 {
		t.Errorf("expired = %d, want 0", r.Stats.Expired)
	}
}
