// Package pipeline orchestrates one knowledge-base build: extract the
// contacts PDF, classify every raw scrape file, merge the contact chunks
// through the shared dedup gate, and write a timestamped snapshot. Steps
// are isolated; a failed extraction or an unreadable file degrades the
// snapshot instead of aborting the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/ingest"
	"github.com/SiteSageAI/sitesage-mvp/engine/pdfcontact"
)

// Config locates the data directories.
type Config struct {
	RawDir       string
	ProcessedDir string
	ContactsPDF  string // filename inside RawDir
}

// Pipeline is one build run. Construct with New, call Execute once.
type Pipeline struct {
	// Contacts overrides the default PDF-backed source; tests and
	// alternative document formats plug in here.
	Contacts pdfcontact.Source

	cfg       Config
	run       *ingest.Run
	extractor *pdfcontact.Extractor
	logger    *slog.Logger
	now       func() time.Time
	chunks    []domain.Chunk
}

// New creates a Pipeline on the wall clock.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	return NewAt(cfg, logger, time.Now)
}

// NewAt creates a Pipeline with a pinned clock, which fixes snapshot
// names, scraped_at defaults, and the expiry horizon.
func NewAt(cfg Config, logger *slog.Logger, now func() time.Time) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if cfg.ContactsPDF == "" {
		cfg.ContactsPDF = "contacts.pdf"
	}
	return &Pipeline{
		cfg:       cfg,
		run:       ingest.NewRunAt(logger, now),
		extractor: pdfcontact.NewExtractorAt(logger, now),
		logger:    logger,
		now:       now,
	}
}

// Stats exposes the run counters, populated during Execute.
func (p *Pipeline) Stats() *ingest.Stats { return p.run.Stats }

// Execute runs the four build steps and returns the snapshot path.
func (p *Pipeline) Execute(ctx context.Context) (string, error) {
	p.logger.Info("pipeline starting",
		"raw_dir", p.cfg.RawDir, "processed_dir", p.cfg.ProcessedDir)

	if err := os.MkdirAll(p.cfg.ProcessedDir, 0o755); err != nil {
		return "", fmt.Errorf("processed dir: %w", err)
	}

	if err := p.extractContacts(); err != nil {
		p.logger.Error("contact extraction failed, continuing with last good extraction", "error", err)
	}
	if err := p.processRaw(ctx); err != nil {
		return "", err
	}
	p.mergeContacts()
	return p.writeSnapshot()
}

// extractContacts runs the PDF extraction and persists it to the
// processed directory, where mergeContacts (and any later run) picks up
// the newest extraction. An empty result writes nothing so it cannot
// shadow a previous good extraction.
func (p *Pipeline) extractContacts() error {
	src := p.Contacts
	if src == nil {
		path := filepath.Join(p.cfg.RawDir, p.cfg.ContactsPDF)
		if _, err := os.Stat(path); err != nil {
			p.logger.Warn("contacts pdf not found, skipping extraction", "path", path)
			return nil
		}
		src = &pdfcontact.PDFSource{Path: path}
	}

	res, err := p.extractor.Extract(src, p.cfg.ContactsPDF)
	if err != nil {
		return err
	}
	p.run.Stats.MissingIdentity += res.RowsSkipped
	if len(res.Chunks) == 0 {
		p.logger.Warn("contact extraction produced no chunks, nothing written")
		return nil
	}

	out := filepath.Join(p.cfg.ProcessedDir,
		fmt.Sprintf("processed_pdf_contacts_%s.jsonl", p.now().Format(timestampLayout)))
	if err := WriteChunks(out, res.Chunks); err != nil {
		return err
	}
	p.logger.Info("contact extraction written", "path", out, "chunks", len(res.Chunks))
	return nil
}

// processRaw classifies every raw scrape file. Files are visited in name
// order so reruns over the same inputs produce the same snapshot.
func (p *Pipeline) processRaw(ctx context.Context) error {
	files, err := filepath.Glob(filepath.Join(p.cfg.RawDir, "*.json"))
	if err != nil {
		return fmt.Errorf("scan raw dir: %w", err)
	}
	sort.Strings(files)
	p.logger.Info("raw files discovered", "count", len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.processFile(path)
	}
	return nil
}

func (p *Pipeline) processFile(path string) {
	base := filepath.Base(path)
	source, ok := domain.SniffSourceType(base)
	if !ok {
		p.run.Stats.FilesSkipped++
		p.logger.Warn("unrecognized raw file", "file", base)
		return
	}

	records, err := ReadRecords(path)
	if err != nil {
		p.run.Stats.FilesSkipped++
		p.logger.Error("raw file unreadable", "file", base, "error", err)
		return
	}
	if len(records) == 0 {
		p.logger.Warn("empty raw file", "file", base)
		return
	}

	// Staff scrapes mix listing pages with profile pages; only profiles
	// carry per-person fields.
	if source == domain.SourceStaff {
		records = filterPageType(records, domain.SourceStaff.PageType())
	}

	chunks, err := p.run.Classify(source, records)
	if err != nil {
		p.run.Stats.FilesSkipped++
		p.logger.Error("classification failed", "file", base, "error", err)
		return
	}
	p.chunks = append(p.chunks, chunks...)
	p.logger.Info("raw file processed",
		"file", base, "source", string(source), "records", len(records), "chunks", len(chunks))
}

// mergeContacts appends the newest persisted contact extraction, routing
// every chunk through the run's dedup gate so contacts also present in
// the staff scrape collapse to one entry.
func (p *Pipeline) mergeContacts() {
	path, err := LatestContacts(p.cfg.ProcessedDir)
	if err != nil {
		p.logger.Warn("no processed contacts to merge")
		return
	}
	chunks, bad, err := ReadChunksLenient(path)
	if err != nil {
		p.logger.Error("contacts file unreadable", "path", path, "error", err)
		return
	}
	if bad > 0 {
		p.logger.Warn("malformed contact lines skipped",
			"file", filepath.Base(path), "skipped", bad)
	}
	merged := 0
	for _, c := range chunks {
		if out, ok := p.run.Merge(c); ok {
			p.chunks = append(p.chunks, out)
			merged++
		}
	}
	p.logger.Info("pdf contacts merged",
		"file", filepath.Base(path), "merged", merged, "read", len(chunks))
}

func (p *Pipeline) writeSnapshot() (string, error) {
	path := filepath.Join(p.cfg.ProcessedDir,
		fmt.Sprintf("knowledge_base_%s.jsonl", p.now().Format(timestampLayout)))
	if err := WriteChunks(path, p.chunks); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	p.logger.Info("snapshot written",
		append([]any{"path", path, "chunks", len(p.chunks)}, p.run.Stats.Attrs()...)...)
	return path, nil
}

func filterPageType(records []ingest.RawRecord, pageType string) []ingest.RawRecord {
	out := make([]ingest.RawRecord, 0, len(records))
	for _, rec := range records {
		if rec.Text("page_type") == pageType {
			out = append(out, rec)
		}
	}
	return out
}
