package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/ingest"
)

// timestampLayout names snapshot and extraction files; lexical order
// matches chronological order.
const timestampLayout = "20060102_150405"

// ReadRecords decodes one raw scrape file, a JSON array of records.
func ReadRecords(path string) ([]ingest.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var records []ingest.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", filepath.Base(path), domain.ErrMalformedFile, err)
	}
	return records, nil
}

// ReadChunks decodes a JSONL chunk file, one chunk per line.
func ReadChunks(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	dec := json.NewDecoder(f)
	for {
		var c domain.Chunk
		if err := dec.Decode(&c); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", filepath.Base(path), domain.ErrMalformedFile, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// ReadChunksLenient decodes a JSONL chunk file one line at a time,
// counting and skipping malformed lines instead of failing the file, so a
// single corrupt line cannot discard an otherwise good store.
func ReadChunksLenient(path string) ([]domain.Chunk, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var (
		chunks []domain.Chunk
		bad    int
	)
	r := bufio.NewReader(f)
	for {
		line, readErr := r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var c domain.Chunk
			if err := json.Unmarshal(line, &c); err != nil {
				bad++
			} else {
				chunks = append(chunks, c)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return chunks, bad, nil
		}
		if readErr != nil {
			return chunks, bad, fmt.Errorf("read %s: %w", filepath.Base(path), readErr)
		}
	}
}

// WriteChunks writes chunks as JSONL. HTML escaping is off so URLs in
// content and metadata survive byte-for-byte.
func WriteChunks(path string, chunks []domain.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			f.Close()
			return fmt.Errorf("encode chunk: %w", err)
		}
	}
	return f.Close()
}

// LatestContacts returns the newest persisted contact extraction.
func LatestContacts(processedDir string) (string, error) {
	return latestByModTime(filepath.Join(processedDir, "processed_pdf_contacts_*.jsonl"))
}

// LatestSnapshot returns the newest knowledge-base snapshot, or
// domain.ErrNoSnapshot when none has been built yet.
func LatestSnapshot(processedDir string) (string, error) {
	path, err := latestByModTime(filepath.Join(processedDir, "knowledge_base_*.jsonl"))
	if err != nil {
		return "", fmt.Errorf("%s: %w", processedDir, domain.ErrNoSnapshot)
	}
	return path, nil
}

func latestByModTime(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = m, info.ModTime()
		}
	}
	if best == "" {
		return "", os.ErrNotExist
	}
	return best, nil
}
