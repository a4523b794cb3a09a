package ingest

import (
	"encoding/json"
	"strings"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

// staffKey identifies one person: lowercased name plus lowercased primary
// division.
type staffKey struct {
	name     string
	division string
}

// mergeDivision picks the division used for identity grouping: the
// singular field when the scrape carries one, else the first of the list,
// else Unknown.
func mergeDivision(rec RawRecord) string {
	if d := rec.Text("division"); d != "" {
		return d
	}
	if divs := rec.List("divisions"); len(divs) > 0 {
		return divs[0]
	}
	return domain.UnknownDivision
}

// moreInformative decides which of two records describing the same person
// survives the merge. Serialized length approximates information density;
// the policy is provisional and deliberately confined to this function.
func moreInformative(candidate, incumbent RawRecord) bool {
	a, _ := json.Marshal(candidate)
	b, _ := json.Marshal(incumbent)
	return len(a) > len(b)
}

// Staff emits one comprehensive chunk per unique person. Records group by
// identity key before any chunk is generated, so a person sighted on
// several pages yields a single chunk built from the densest sighting
// rather than relying on the dedup gate to collapse near-duplicates.
func (r *Run) Staff(records []RawRecord) []domain.Chunk {
	order := make([]staffKey, 0, len(records))
	grouped := make(map[staffKey]RawRecord, len(records))

	for _, rec := range records {
		name := rec.Text("name")
		if name == "" {
			r.Stats.MissingIdentity++
			continue
		}
		key := staffKey{
			name:     strings.ToLower(name),
			division: strings.ToLower(mergeDivision(rec)),
		}
		if incumbent, ok := grouped[key]; ok {
			if moreInformative(rec, incumbent) {
				grouped[key] = rec
			}
			continue
		}
		grouped[key] = rec
		order = append(order, key)
	}

	chunks := make([]domain.Chunk, 0, len(order))
	for _, key := range order {
		rec := grouped[key]

		name := rec.Text("name")
		title := rec.Text("title")

		designations := rec.List("designations")
		if len(designations) == 0 {
			designations = rec.List("designation")
		}

		divisions := rec.List("divisions")
		if len(divisions) == 0 {
			divisions = rec.List("division")
		}

		primary := domain.UnknownDivision
		if len(divisions) > 0 {
			primary = divisions[0]
		}

		cvLinks := rec.List("cv_links")

		parts := []string{"Staff Member: " + name}
		if title != "" {
			parts = append(parts, "Title: "+title)
		}
		if len(designations) > 0 {
			parts = append(parts, "Designations: "+strings.Join(designations, ", "))
		}
		parts = append(parts, "Primary Division: "+primary)
		if len(divisions) > 1 {
			parts = append(parts, "All Divisions: "+strings.Join(divisions, ", "))
		}
		if len(cvLinks) > 0 {
			parts = append(parts, "CV Available: "+strings.Join(cvLinks, ", "))
		}

		md := domain.CommonMetadata(domain.SourceStaff, rec.SourceURL("profile_url", "url"), rec.ScrapedAt(r.now()))
		md["name"] = name
		md["title"] = title
		md["designations"] = nonNil(designations)
		md["divisions"] = nonNil(divisions)
		md["primary_division"] = primary
		md["cv_available"] = len(cvLinks) > 0
		md["cv_links"] = nonNil(cvLinks)

		if chunk, ok := r.Emit(domain.SourceStaff, joinSentences(parts), md); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
