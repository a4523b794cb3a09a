package pdfcontact

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/SiteSageAI/sitesage-mvp/engine/normalize"
)

// defaultColumnGap is the horizontal whitespace, in PDF points, that
// separates two table columns. Glyph spacing inside a cell stays well
// under this; the directory layout's column gutters run well over it.
const defaultColumnGap = 12.0

// PDFSource reads a directory PDF from disk and reconstructs its tables
// from positioned text: glyphs sharing a baseline form a row, and a
// horizontal jump wider than ColumnGap starts a new cell. Cells that
// contain no glyphs at all are invisible to this reconstruction, so the
// extractor's bounds-checked cell access has to tolerate short rows.
type PDFSource struct {
	Path      string
	ColumnGap float64
}

// Pages implements Source.
func (s *PDFSource) Pages() ([]Page, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	gap := s.ColumnGap
	if gap <= 0 {
		gap = defaultColumnGap
	}

	var pages []Page
	for n := 1; n <= reader.NumPage(); n++ {
		p := reader.Page(n)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d text: %w", n, err)
		}
		table := make(Table, 0, len(rows))
		for _, row := range rows {
			if cells := splitCells(row.Content, gap); len(cells) > 0 {
				table = append(table, cells)
			}
		}
		if len(table) > 0 {
			pages = append(pages, Page{Number: n, Tables: []Table{table}})
		}
	}
	return pages, nil
}

// splitCells groups one baseline's glyphs into cells at horizontal gaps
// wider than colGap.
func splitCells(glyphs []pdf.Text, colGap float64) []string {
	var (
		cells   []string
		cur     strings.Builder
		lastEnd = math.Inf(-1)
	)
	flush := func() {
		if s := normalize.Text(cur.String()); s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}
	for _, g := range glyphs {
		if cur.Len() > 0 && g.X-lastEnd > colGap {
			flush()
		}
		cur.WriteString(g.S)
		lastEnd = g.X + g.W
	}
	flush()
	return cells
}
