package ingest

import (
	"strings"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

// News emits one chunk per news item, preferring scraped article bodies
// over listing-page summaries. Bid announcements that surface in the news
// feed get the in-text deadline check so stale notices drop out the same
// way expired tenders do.
func (r *Run) News(records []RawRecord) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(records))
	for _, rec := range records {
		headline := rec.Text("headline")
		if headline == "" {
			r.Stats.MissingIdentity++
			continue
		}

		full := rec.Text("full_content")
		content := full
		if content == "" {
			content = rec.Text("brief_summary")
		}
		if content == "" {
			r.Stats.NoContent++
			continue
		}

		if announcesBid(headline) && r.Temporal.ExpiredInText(content) {
			r.Stats.Expired++
			r.Logger.Info("dropping expired notice", "headline", headline)
			continue
		}

		md := domain.CommonMetadata(domain.SourceNews, rec.SourceURL("source_url", "url"), rec.ScrapedAt(r.now()))
		md["headline"] = headline
		md["has_full_content"] = full != ""

		if chunk, ok := r.Emit(domain.SourceNews, "News: "+headline+". "+content, md); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// announcesBid reports whether a headline reads like a bid opportunity
// rather than ordinary news.
func announcesBid(headline string) bool {
	lower := strings.ToLower(headline)
	return strings.Contains(lower, "expression of interest") ||
		strings.Contains(lower, "eoi") ||
		strings.Contains(lower, "tender")
}
