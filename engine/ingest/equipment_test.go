package ingest

import "testing"

func TestEquipment_FullRecord(t *testing.T) {
	r := testRun()
	chunks := r.Equipment([]RawRecord{{
		"equipment_name":     "Falling Weight Deflectometer",
		"division":           "Pavement Evaluation",
		"make":               "Dynatest",
		"model":              "8000",
		"specification":      "Load range 7-120 kN",
		"working_principles": "Applies an impulse load and records deflections.",
		"applications":       []any{"Structural evaluation", "Overlay design"},
		"usage_charges":      "On request",
		"contact_details":    "fwd@example.org",
		"source_url":         "https://example.org/equipment/fwd",
	}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "Equipment: Falling Weight Deflectometer. Division: Pavement Evaluation. " +
		"Make: Dynatest. Model: 8000. Specification: Load range 7-120 kN. " +
		"Working Principles: Applies an impulse load and records deflections. " +
		"Applications: Structural evaluation Overlay design. " +
		"Usage Charges: On request. Contact: fwd@example.org."
	if chunks[0].Content != want {
		t.Errorf("content = %q, want %q", chunks[0].Content, want)
	}
	md := chunks[0].Metadata
	if md["make"] != "Dynatest" || md["model"] != "8000" {
		t.Errorf("make/model = %v/%v", md["make"], md["model"])
	}
	if md["specification"] != "Load range 7-120 kN" {
		t.Errorf("specification = %v", md["specification"])
	}
	if md["working_principles"] != "Applies an impulse load and records deflections." {
		t.Errorf("working_principles = %v", md["working_principles"])
	}
	if md["applications"] != "Structural evaluation Overlay design" {
		t.Errorf("applications = %v", md["applications"])
	}
	if md["usage_charges"] != "On request" {
		t.Errorf("usage_charges = %v", md["usage_charges"])
	}
	if md["contact_details"] != "fwd@example.org" {
		t.Errorf("contact_details = %v", md["contact_details"])
	}
	if md["page_type"] != "equipment_detail" {
		t.Errorf("page_type = %v", md["page_type"])
	}
}

func TestEquipment_ListAndStringShapesCollapse(t *testing.T) {
	r := testRun()
	// The same instrument scraped twice: once with working_principles as a
	// single string, once as an array of lines. The flattened content is
	// identical, so the second record is a duplicate.
	chunks := r.Equipment([]RawRecord{
		{
			"equipment_name":     "Skid Resistance Tester",
			"working_principles": "Pendulum arm sweeps the surface.",
		},
		{
			"equipment_name":     "Skid Resistance Tester",
			"working_principles": []any{"Pendulum arm", "sweeps the surface."},
		},
	})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if r.Stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", r.Stats.Duplicates)
	}
}

func TestEquipment_DivisionDefaultsToUnknown(t *testing.T) {
	r := testRun()
	chunks := r.Equipment([]RawRecord{{"equipment_name": "Core Cutter"}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "Equipment: Core Cutter. Division: Unknown."
	if chunks[0].Content != want {
		t.Errorf("content = %q, want %q", chunks[0].Content, want)
	}
	if chunks[0].Metadata["division"] != "Unknown" {
		t.Errorf("division = %v", chunks[0].Metadata["division"])
	}
}

func TestEquipment_MissingNameCounted(t *testing.T) {
	r := testRun()
	chunks := r.Equipment([]RawRecord{{"division": "Instrumentation"}})
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
	if r.Stats.MissingIdentity != 1 {
		t.Errorf("missing identity = %d, want 1", r.Stats.MissingIdentity)
	}
}
