// Package pdfcontact extracts staff contact chunks from the institute's
// contacts PDF, a multi-page directory table whose header row appears only
// on the first page. Column positions resolved against the first page are
// reused for every later page, so a directory split across pages still
// yields one coherent contact set.
package pdfcontact

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/normalize"
)

// Table is one extracted table: rows of text cells.
type Table [][]string

// Page holds the tables found on one document page. Number is 1-based.
type Page struct {
	Number int
	Tables []Table
}

// Source yields per-page table text from a staff directory document.
type Source interface {
	Pages() ([]Page, error)
}

// Result carries extraction output plus row accounting for the run
// summary.
type Result struct {
	Chunks      []domain.Chunk
	RowsSkipped int
}

// Directory tables put serial number, name, and designation in the first
// three columns; only the contact columns move between revisions.
const (
	colSerial      = 0
	colName        = 1
	colDesignation = 2
)

// Header aliases seen across directory revisions. Matching is
// case-insensitive substring in either direction, earlier alias winning.
var (
	emailHeaders  = []string{"Email Id", "Email", "Email Id(gov/nic)"}
	mobileHeaders = []string{"Mobile", "Mobile(preferably Linked with Aadhar)", "Phone"}
)

// Extractor turns directory pages into contact chunks.
type Extractor struct {
	Logger *slog.Logger

	now func() time.Time
}

// NewExtractor creates an Extractor on the wall clock.
func NewExtractor(logger *slog.Logger) *Extractor {
	return NewExtractorAt(logger, time.Now)
}

// NewExtractorAt creates an Extractor with a pinned clock.
func NewExtractorAt(logger *slog.Logger, now func() time.Time) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Extractor{Logger: logger, now: now}
}

// Extract walks every table on every page and emits one chunk per contact
// row. The first page's tables carry header rows; later pages are data
// only and are interpreted with the first page's column indices. A first
// page without a usable header row aborts the whole extraction, because
// nothing downstream can be trusted without the column map.
func (e *Extractor) Extract(src Source, sourceFile string) (Result, error) {
	pages, err := src.Pages()
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", sourceFile, err)
	}

	var (
		res       Result
		headers   []string
		emailIdx  = -1
		mobileIdx = -1
	)

	for pageIdx, page := range pages {
		onFirstPage := pageIdx == 0
		for tableIdx, table := range page.Tables {
			var dataRows Table
			if onFirstPage {
				if len(table) == 0 || len(table[0]) == 0 {
					return Result{}, fmt.Errorf("%s page %d table %d: %w",
						sourceFile, page.Number, tableIdx, domain.ErrNoHeaderRow)
				}
				headers = normalizeHeaders(table[0])
				emailIdx = findColumn(headers, emailHeaders)
				mobileIdx = findColumn(headers, mobileHeaders)
				if emailIdx < 0 {
					e.Logger.Warn("email column not found", "file", sourceFile, "headers", headers)
				}
				if mobileIdx < 0 {
					e.Logger.Warn("mobile column not found", "file", sourceFile, "headers", headers)
				}
				dataRows = table[1:]
			} else {
				if headers == nil {
					return Result{}, fmt.Errorf("%s page %d: %w",
						sourceFile, page.Number, domain.ErrNoHeaderRow)
				}
				dataRows = table
			}

			for rowNum, row := range dataRows {
				name := cell(row, colName)
				if name == "" {
					res.RowsSkipped++
					e.Logger.Debug("row without name skipped",
						"file", sourceFile, "page", page.Number, "row", rowNum+1)
					continue
				}

				designation := cell(row, colDesignation)
				email := normalize.Email(cell(row, emailIdx))
				mobile := cell(row, mobileIdx)

				parts := []string{"Staff Member: " + name}
				if designation != "" {
					parts = append(parts, "Designation: "+designation)
				}
				if email != "" {
					parts = append(parts, "Email: "+email)
				}
				if mobile != "" {
					parts = append(parts, "Mobile: "+mobile)
				}

				res.Chunks = append(res.Chunks, domain.Chunk{
					Content: strings.Join(parts, ". ") + ".",
					Metadata: map[string]any{
						"source_type":           string(domain.SourcePDFContact),
						"source_file":           sourceFile,
						"page_number":           page.Number,
						"table_index_on_page":   tableIdx,
						"row_number_on_page":    rowNum + 1,
						"s_no":                  cell(row, colSerial),
						"name":                  name,
						"designation":           designation,
						"email":                 email,
						"mobile":                mobile,
						"scraped_at":            e.now().UTC().Format(time.RFC3339),
						"email_col_index_used":  emailIdx,
						"mobile_col_index_used": mobileIdx,
						"headers_on_first_page": headers,
					},
				})
			}
		}
	}

	e.Logger.Info("pdf contacts extracted",
		"file", sourceFile, "chunks", len(res.Chunks), "rows_skipped", res.RowsSkipped)
	return res, nil
}

// cell returns the normalized cell at idx, or "" when the row is too short
// or the column was never resolved.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return normalize.Text(row[idx])
}

func normalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = normalize.Text(h)
	}
	return out
}

// findColumn resolves a column by alias. The substring check runs both
// ways because revisions both extend ("Email" to "Email Id(gov/nic)") and
// abbreviate header text. Empty header cells never match.
func findColumn(headers []string, candidates []string) int {
	for _, want := range candidates {
		w := strings.ToLower(normalize.Text(want))
		for i, h := range headers {
			hl := strings.ToLower(h)
			if hl == "" {
				continue
			}
			if strings.Contains(hl, w) || strings.Contains(w, hl) {
				return i
			}
		}
	}
	return -1
}
