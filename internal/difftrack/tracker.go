// Package difftrack records per-chapter differences between source and
// translated text and writes them as a JSON report next to the output book.
package difftrack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Report is the serialized translation audit for one job.
type Report struct {
	JobID       string        `json:"jobId"`
	BookTitle   string        `json:"bookTitle,omitempty"`
	SourcePath  string        `json:"sourcePath"`
	OutputPath  string        `json:"outputPath"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Chapters    []ChapterDiff `json:"chapters"`
	TotalEdits  int           `json:"totalEdits"`
	TotalSource int           `json:"totalSourceChars"`
	TotalOutput int           `json:"totalOutputChars"`
}

// ChapterDiff summarizes how one chapter changed.
type ChapterDiff struct {
	Index       int    `json:"index"`
	Path        string `json:"path"`
	SourceChars int    `json:"sourceChars"`
	OutputChars int    `json:"outputChars"`
	Insertions  int    `json:"insertions"`
	Deletions   int    `json:"deletions"`
	Unchanged   int    `json:"unchangedChars"`
	Preview     string `json:"preview,omitempty"`
}

const previewLimit = 200

// Tracker accumulates chapter diffs for a running job. Safe for use from a
// single job goroutine while snapshots are taken elsewhere.
type Tracker struct {
	mu     sync.Mutex
	dmp    *diffmatchpatch.DiffMatchPatch
	report Report
}

// NewTracker starts an audit for one job.
func NewTracker(jobID, sourcePath, bookTitle string) *Tracker {
	return &Tracker{
		dmp: diffmatchpatch.New(),
		report: Report{
			JobID:      jobID,
			BookTitle:  bookTitle,
			SourcePath: sourcePath,
			StartedAt:  time.Now().UTC(),
		},
	}
}

// AddChapter diffs one chapter's source and translated text and records the
// edit counts.
func (t *Tracker) AddChapter(index int, path, sourceText, outputText string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	diffs := t.dmp.DiffMain(sourceText, outputText, false)
	chapter := ChapterDiff{
		Index:       index,
		Path:        path,
		SourceChars: len([]rune(sourceText)),
		OutputChars: len([]rune(outputText)),
		Preview:     preview(outputText),
	}
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chapter.Insertions += n
		case diffmatchpatch.DiffDelete:
			chapter.Deletions += n
		case diffmatchpatch.DiffEqual:
			chapter.Unchanged += n
		}
	}

	t.report.Chapters = append(t.report.Chapters, chapter)
	t.report.TotalEdits += chapter.Insertions + chapter.Deletions
	t.report.TotalSource += chapter.SourceChars
	t.report.TotalOutput += chapter.OutputChars
}

// Snapshot returns a copy of the report so far.
func (t *Tracker) Snapshot() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := t.report
	copied.Chapters = append([]ChapterDiff(nil), t.report.Chapters...)
	return copied
}

// WriteReport finalizes the audit and writes it as JSON next to the
// translated book.
func (t *Tracker) WriteReport(outputPath string) error {
	t.mu.Lock()
	t.report.OutputPath = outputPath
	t.report.FinishedAt = time.Now().UTC()
	copied := t.report
	t.mu.Unlock()

	data, err := json.MarshalIndent(copied, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding diff report: %w", err)
	}
	reportPath := ReportPath(outputPath)
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("writing diff report: %w", err)
	}
	return nil
}

// ReportPath derives the report location from the translated book's path.
func ReportPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + "_diff.json"
}

// preview returns the opening of the translated text for quick inspection.
func preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= previewLimit {
		return string(runes)
	}
	return string(runes[:previewLimit])
}
