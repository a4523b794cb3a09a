package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/normalize"
	"github.com/SiteSageAI/sitesage-mvp/engine/temporal"
)

// Tenders emits one chunk per live tender. A deadline that parses to a
// moment before the run clock marks stale content and the record is
// skipped; unparseable deadlines and the literal "Not specified" fail
// open, because a malformed date is not evidence the tender closed.
func (r *Run) Tenders(records []RawRecord) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(records))
	for _, rec := range records {
		title := rec.Text("tender_title")
		if title == "" {
			r.Stats.MissingIdentity++
			continue
		}

		refNo := rec.Text("reference_no")
		description := rec.Text("description")
		deadline := rec.TextOr("bid_submission_deadline", temporal.NotSpecified)

		if r.Temporal.Expired(deadline) {
			r.Stats.Expired++
			r.Logger.Info("dropping expired tender", "title", title, "deadline", deadline)
			continue
		}

		text := fmt.Sprintf("Tender: %s. Reference: %s. Deadline: %s. %s. %s",
			title, refNo, deadline, description, tenderDocuments(rec))

		md := domain.CommonMetadata(domain.SourceTender, rec.SourceURL("source_url", "url"), rec.ScrapedAt(r.now()))
		md["tender_title"] = title
		md["reference_no"] = refNo
		md["bid_submission_deadline"] = deadline
		md["pdf_files"] = serializeAttachments(rec)

		if chunk, ok := r.Emit(domain.SourceTender, text, md); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// tenderDocuments renders attached documents as a markdown link list, or
// "" when the tender carries none.
func tenderDocuments(rec RawRecord) string {
	files, _ := rec["pdf_files"].([]any)
	links := make([]string, 0, len(files))
	for _, f := range files {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		title := "Document"
		if v, present := m["title"]; present {
			title = normalize.Any(v)
		}
		url, _ := m["url"].(string)
		if url == "" {
			continue
		}
		links = append(links, "["+title+"]("+url+")")
	}
	if len(links) == 0 {
		return ""
	}
	return "Documents: " + strings.Join(links, ", ")
}

// serializeAttachments flattens the nested attachment list to a JSON
// string. Vector-store payload values must stay scalar, so the raw list
// cannot ride along as-is.
func serializeAttachments(rec RawRecord) string {
	files, _ := rec["pdf_files"].([]any)
	if files == nil {
		files = []any{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return "[]"
	}
	return string(b)
}
