package ingest

import (
	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/normalize"
)

// Equipment emits one chunk per instrument. Free-text fields such as
// working_principles and applications arrive from the scrapers as either a
// single string or an array of lines; both shapes flatten to the same
// space-joined text, so the resulting chunk content is identical either
// way and the dedup gate treats them as one record.
func (r *Run) Equipment(records []RawRecord) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(records))
	for _, rec := range records {
		name := rec.Text("equipment_name")
		if name == "" {
			r.Stats.MissingIdentity++
			continue
		}

		division := rec.Text("division")
		if division == "" {
			division = domain.UnknownDivision
		}
		make := rec.Text("make")
		model := rec.Text("model")
		spec := rec.Text("specification")
		working := normalize.Any(rec["working_principles"])
		applications := normalize.Any(rec["applications"])
		usage := rec.Text("usage_charges")
		contact := rec.Text("contact_details")

		parts := []string{"Equipment: " + name, "Division: " + division}
		if make != "" {
			parts = append(parts, "Make: "+make)
		}
		if model != "" {
			parts = append(parts, "Model: "+model)
		}
		if spec != "" {
			parts = append(parts, "Specification: "+spec)
		}
		if working != "" {
			parts = append(parts, "Working Principles: "+working)
		}
		if applications != "" {
			parts = append(parts, "Applications: "+applications)
		}
		if usage != "" {
			parts = append(parts, "Usage Charges: "+usage)
		}
		if contact != "" {
			parts = append(parts, "Contact: "+contact)
		}

		md := domain.CommonMetadata(domain.SourceEquipment, rec.SourceURL("source_url", "url"), rec.ScrapedAt(r.now()))
		md["equipment_name"] = name
		md["division"] = division
		md["make"] = make
		md["model"] = model
		md["specification"] = spec
		md["working_principles"] = working
		md["applications"] = applications
		md["usage_charges"] = usage
		md["contact_details"] = contact

		if chunk, ok := r.Emit(domain.SourceEquipment, joinSentences(parts), md); ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
