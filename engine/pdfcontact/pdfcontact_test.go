package pdfcontact

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/ledongthuc/pdf"
)

type fakeSource struct {
	pages []Page
	err   error
}

func (f *fakeSource) Pages() ([]Page, error) { return f.pages, f.err }

func testExtractor() *Extractor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	return NewExtractorAt(logger, func() time.Time { return fixed })
}

func directoryPages() []Page {
	return []Page{
		{
			Number: 1,
			Tables: []Table{{
				{"S. No.", "Name", "Designation", "Email Id(gov/nic)", "Mobile"},
				{"1", "Dr. A. Kumar", "Chief Scientist", "a [dot] kumar [at] example [dot] org", "9876543210"},
				{"2", "B. Singh", "Technical Officer", "", ""},
			}},
		},
		{
			Number: 2,
			Tables: []Table{{
				{"3", "C. Devi", "Scientist", "c.devi@example.org", "9123456780"},
			}},
		},
	}
}

func TestExtract_MultiPageDirectory(t *testing.T) {
	e := testExtractor()
	res, err := e.Extract(&fakeSource{pages: directoryPages()}, "contacts.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(res.Chunks))
	}

	first := res.Chunks[0]
	want := "Staff Member: Dr. A. Kumar. Designation: Chief Scientist. " +
		"Email: a.kumar@example.org. Mobile: 9876543210."
	if first.Content != want {
		t.Errorf("content = %q, want %q", first.Content, want)
	}
	if first.Metadata["page_number"] != 1 {
		t.Errorf("page_number = %v", first.Metadata["page_number"])
	}
	if first.Metadata["source_type"] != string(domain.SourcePDFContact) {
		t.Errorf("source_type = %v", first.Metadata["source_type"])
	}
	if first.Metadata["email_col_index_used"] != 3 {
		t.Errorf("email_col_index_used = %v", first.Metadata["email_col_index_used"])
	}
	if first.Metadata["mobile_col_index_used"] != 4 {
		t.Errorf("mobile_col_index_used = %v", first.Metadata["mobile_col_index_used"])
	}

	// Row with empty contact cells still emits, minus the empty fields.
	second := res.Chunks[1]
	if second.Content != "Staff Member: B. Singh. Designation: Technical Officer." {
		t.Errorf("content = %q", second.Content)
	}

	// Page 2 carries no header row; its cells resolve through the page 1
	// column map.
	third := res.Chunks[2]
	if third.Content != "Staff Member: C. Devi. Designation: Scientist. Email: c.devi@example.org. Mobile: 9123456780." {
		t.Errorf("content = %q", third.Content)
	}
	if third.Metadata["page_number"] != 2 {
		t.Errorf("page_number = %v", third.Metadata["page_number"])
	}
	if third.Metadata["row_number_on_page"] != 1 {
		t.Errorf("row_number_on_page = %v", third.Metadata["row_number_on_page"])
	}
}

func TestExtract_EmptyFirstPageHeaderAborts(t *testing.T) {
	e := testExtractor()
	pages := []Page{{Number: 1, Tables: []Table{{}}}}
	_, err := e.Extract(&fakeSource{pages: pages}, "contacts.pdf")
	if !errors.Is(err, domain.ErrNoHeaderRow) {
		t.Fatalf("expected ErrNoHeaderRow, got %v", err)
	}
}

func TestExtract_DataBeforeHeadersAborts(t *testing.T) {
	e := testExtractor()
	// A document whose first extracted page is data-only cannot be mapped.
	pages := []Page{
		{Number: 1, Tables: nil},
		{Number: 2, Tables: []Table{{{"1", "D. Rao", "Scientist"}}}},
	}
	_, err := e.Extract(&fakeSource{pages: pages}, "contacts.pdf")
	if !errors.Is(err, domain.ErrNoHeaderRow) {
		t.Fatalf("expected ErrNoHeaderRow, got %v", err)
	}
}

func TestExtract_RowsWithoutNameSkipped(t *testing.T) {
	e := testExtractor()
	pages := []Page{{
		Number: 1,
		Tables: []Table{{
			{"S. No.", "Name", "Designation", "Email", "Mobile"},
			{"1", "", "Dangling designation", "x@example.org", ""},
			{"2"},
			{"3", "E. Sharma", "Scientist", "e@example.org", "9000000001"},
		}},
	}}
	res, err := e.Extract(&fakeSource{pages: pages}, "contacts.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(res.Chunks))
	}
	if res.RowsSkipped != 2 {
		t.Errorf("rows skipped = %d, want 2", res.RowsSkipped)
	}
}

func TestExtract_SourceError(t *testing.T) {
	e := testExtractor()
	boom := errors.New("corrupt xref")
	_, err := e.Extract(&fakeSource{err: boom}, "contacts.pdf")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestFindColumn(t *testing.T) {
	tests := []struct {
		name       string
		headers    []string
		candidates []string
		want       int
	}{
		{"exact", []string{"S. No.", "Name", "Email Id"}, emailHeaders, 2},
		{"header extends alias", []string{"Name", "Email Id(gov/nic only)"}, emailHeaders, 1},
		{"alias extends header", []string{"Name", "Email"}, []string{"Email Id"}, 1},
		{"case insensitive", []string{"NAME", "EMAIL ID"}, emailHeaders, 1},
		{"absent", []string{"Name", "Room No."}, emailHeaders, -1},
		{"empty header never matches", []string{"", "Phone"}, mobileHeaders, 1},
		{"alias priority", []string{"Phone", "Mobile"}, mobileHeaders, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findColumn(tt.headers, tt.candidates); got != tt.want {
				t.Errorf("findColumn(%v) = %d, want %d", tt.headers, got, tt.want)
			}
		})
	}
}

func TestSplitCells(t *testing.T) {
	glyphs := func(spec ...pdf.Text) []pdf.Text { return spec }

	cells := splitCells(glyphs(
		pdf.Text{S: "N", X: 10, W: 5},
		pdf.Text{S: "o", X: 15, W: 5},
		pdf.Text{S: "A", X: 80, W: 5},
		pdf.Text{S: "B", X: 86, W: 5},
	), 12)
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d: %v", len(cells), cells)
	}
	if cells[0] != "No" || cells[1] != "AB" {
		t.Errorf("cells = %v", cells)
	}

	if got := splitCells(nil, 12); len(got) != 0 {
		t.Errorf("empty row produced cells: %v", got)
	}

	joined := splitCells(glyphs(
		pdf.Text{S: "a", X: 10, W: 5},
		pdf.Text{S: " ", X: 15, W: 3},
		pdf.Text{S: "b", X: 18, W: 5},
	), 12)
	if len(joined) != 1 || joined[0] != "a b" {
		t.Errorf("intra-cell space split: %v", joined)
	}
}

func TestSplitCells_TrailingWhitespaceCell(t *testing.T) {
	cells := splitCells([]pdf.Text{
		{S: "x", X: 10, W: 5},
		{S: " ", X: 100, W: 3},
	}, 12)
	if len(cells) != 1 || cells[0] != "x" {
		t.Errorf("cells = %v", cells)
	}
}

func TestExtract_WarnsButContinuesWithoutContactColumns(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := NewExtractorAt(logger, nil)

	pages := []Page{{
		Number: 1,
		Tables: []Table{{
			{"S. No.", "Name", "Designation"},
			{"1", "F. Gupta", "Director"},
		}},
	}}
	res, err := e.Extract(&fakeSource{pages: pages}, "contacts.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Content != "Staff Member: F. Gupta. Designation: Director." {
		t.Errorf("content = %q", res.Chunks[0].Content)
	}
	if !strings.Contains(buf.String(), "email column not found") {
		t.Error("expected warning about missing email column")
	}
}
