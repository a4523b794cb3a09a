package ingest

import (
	"fmt"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

// Events emits one chunk per event listing. Event dates are informational
// text; past events stay in the knowledge base because "when did X happen"
// is a supported question, unlike closed tenders.
func (r *Run) Events(records []RawRecord) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(records))
	for _, rec := range records {
		title := rec.Text("event_title")
		if title == "" {
			r.Stats.MissingIdentity++
			continue
		}

		date := rec.Text("event_date")
		description := rec.Text("description")
		text := fmt.Sprintf("Event: %s. Date: %s. %s", title, date, description)

		md := domain.CommonMetadata(domain.SourceEvent, rec.SourceURL("source_url", "url"), rec.ScrapedAt(r.now()))
		md["event_title"] = title
		md["event_date"] = date

		if chunk, ok := r.Emit(domain.SourceEvent, text, md); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
