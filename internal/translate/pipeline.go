// Package translate orchestrates the chapter translation pipeline: load the
// book, chunk its text, translate chunk by chunk and rewrite the archive
// after every finished chapter.
package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ebook-translator/internal/backend"
	"ebook-translator/internal/chunker"
	"ebook-translator/internal/config"
	"ebook-translator/internal/difftrack"
	"ebook-translator/internal/domain"
	"ebook-translator/internal/epub"
	"ebook-translator/internal/markup"
)

// Request contains the input book and execution callbacks for one run.
type Request struct {
	JobID          string
	BookPath       string
	Backend        domain.BackendConfig
	ChunkSize      int
	TargetLanguage string
	OnStage        func(stage string)
	OnProgress     func(p Progress)
}

// Progress reports chunk-level completion across the whole job. Chunk
// counters span the entire book, not the current chapter.
type Progress struct {
	Percent      float64
	ChapterIndex int
	ChapterTotal int
	ChunkIndex   int
	ChunkTotal   int
}

// Result contains the output archive path and a summary of the run.
type Result struct {
	OutputPath        string
	ReportPath        string
	BookTitle         string
	ChaptersProcessed int
	FallbackChunks    int
}

// PipelineError is a stage-aware error that also records how much of the
// book was already written before the failure.
type PipelineError struct {
	Stage             string `json:"stage"`
	Message           string `json:"message"`
	ChaptersProcessed int    `json:"chaptersProcessed"`
	OutputPath        string `json:"outputPath,omitempty"`
	Err               error  `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// translator abstracts the backend dispatcher for testability.
type translator interface {
	Translate(ctx context.Context, chunk, systemPrompt string, cfg domain.BackendConfig) (string, error)
}

// Pipeline orchestrates loading, chunking, translation and archive rewrites.
type Pipeline struct {
	translator translator
	openBook   func(path string) (*epub.Book, error)
	remove     func(path string) error
}

// NewPipeline constructs the production pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		translator: backend.NewDispatcher(),
		openBook:   epub.Open,
		remove:     os.Remove,
	}
}

// NewPipelineForTests constructs a pipeline with an injected translator.
func NewPipelineForTests(tr translator) *Pipeline {
	return &Pipeline{
		translator: tr,
		openBook:   epub.Open,
		remove:     os.Remove,
	}
}

// Run translates every chapter of the requested book. The archive at the
// derived output path is rewritten after each finished chapter, so a failed
// or cancelled run leaves the chapters translated so far on disk.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.BookPath) == "" {
		return Result{}, &PipelineError{
			Stage:   "loading",
			Message: "book path is required",
		}
	}
	if err := req.Backend.Validate(); err != nil {
		return Result{}, &PipelineError{
			Stage:   "loading",
			Message: err.Error(),
			Err:     err,
		}
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	systemPrompt := SystemPrompt(req.TargetLanguage)

	emitStage(req.OnStage, "loading")
	book, err := p.openBook(req.BookPath)
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   "loading",
			Message: fmt.Sprintf("cannot open book: %v", err),
			Err:     err,
		}
	}

	chapters := book.Chapters()
	texts := make([]string, len(chapters))
	chunks := make([][]string, len(chapters))
	totalChunks := 0
	for i, chapter := range chapters {
		text, err := epub.ExtractText(chapter.Markup)
		if err != nil {
			return Result{}, &PipelineError{
				Stage:   "loading",
				Message: fmt.Sprintf("cannot read chapter %s: %v", chapter.Path, err),
				Err:     err,
			}
		}
		texts[i] = text
		chunks[i] = chunker.Split(text, chunkSize)
		totalChunks += len(chunks[i])
	}
	if totalChunks == 0 {
		return Result{}, &PipelineError{
			Stage:   "loading",
			Message: "book contains no translatable text",
		}
	}

	outputPath := OutputPath(req.BookPath)
	if err := p.remove(outputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, &PipelineError{
			Stage:   "loading",
			Message: fmt.Sprintf("cannot replace existing output: %v", err),
			Err:     err,
		}
	}

	tracker := difftrack.NewTracker(req.JobID, req.BookPath, book.Title())
	translated := make(map[string]string, len(chapters))
	doneChunks := 0
	fallbackChunks := 0
	chaptersProcessed := 0

	emitStage(req.OnStage, "translating")
	for ci, chapter := range chapters {
		parts := make([]string, 0, len(chunks[ci]))
		for _, chunk := range chunks[ci] {
			if ctx.Err() != nil {
				return Result{}, p.cancelled(ctx.Err(), chaptersProcessed, outputPath)
			}

			out, err := p.translator.Translate(ctx, chunk, systemPrompt, req.Backend)
			switch {
			case err == nil:
			case backend.IsCancellation(err):
				return Result{}, p.cancelled(err, chaptersProcessed, outputPath)
			case backend.IsFatal(err):
				return Result{}, &PipelineError{
					Stage:             "translating",
					Message:           err.Error(),
					ChaptersProcessed: chaptersProcessed,
					OutputPath:        outputPath,
					Err:               err,
				}
			default:
				// Retries exhausted on a transient failure. Keep the
				// source text for this chunk and move on.
				out = chunk
				fallbackChunks++
			}

			parts = append(parts, out)
			doneChunks++
			emitProgress(req.OnProgress, Progress{
				Percent:      percentDone(doneChunks, totalChunks, chaptersProcessed, len(chapters)),
				ChapterIndex: ci,
				ChapterTotal: len(chapters),
				ChunkIndex:   doneChunks,
				ChunkTotal:   totalChunks,
			})
		}

		// Chapters with nothing to translate (image-only pages, filler
		// documents) are copied through unchanged.
		if len(chunks[ci]) > 0 {
			chapterText := strings.Join(parts, "\n\n")
			translated[chapter.Path] = markup.Reintegrate(chapter.Markup, chapterText)
			tracker.AddChapter(ci, chapter.Path, texts[ci], chapterText)
		}

		emitStage(req.OnStage, "saving")
		if err := book.WriteTranslated(outputPath, translated); err != nil {
			return Result{}, &PipelineError{
				Stage:             "saving",
				Message:           fmt.Sprintf("cannot write output archive: %v", err),
				ChaptersProcessed: chaptersProcessed,
				OutputPath:        outputPath,
				Err:               err,
			}
		}
		chaptersProcessed = ci + 1
		emitProgress(req.OnProgress, Progress{
			Percent:      percentDone(doneChunks, totalChunks, chaptersProcessed, len(chapters)),
			ChapterIndex: ci,
			ChapterTotal: len(chapters),
			ChunkIndex:   doneChunks,
			ChunkTotal:   totalChunks,
		})
		if chaptersProcessed < len(chapters) {
			emitStage(req.OnStage, "translating")
		}
	}

	result := Result{
		OutputPath:        outputPath,
		BookTitle:         book.Title(),
		ChaptersProcessed: chaptersProcessed,
		FallbackChunks:    fallbackChunks,
	}
	if err := tracker.WriteReport(outputPath); err == nil {
		result.ReportPath = difftrack.ReportPath(outputPath)
	}
	return result, nil
}

// translatePercent is the share of the progress bar spent on translation;
// the rest covers archive rewrites.
const translatePercent = 90.0

// percentDone combines chunk and save progress into one monotonic value.
// Translated chunks fill the first 90 percent, written chapters the rest.
func percentDone(doneChunks, totalChunks, savedChapters, totalChapters int) float64 {
	return translatePercent*float64(doneChunks)/float64(totalChunks) +
		(100-translatePercent)*float64(savedChapters)/float64(totalChapters)
}

// cancelled wraps a cancellation with the partial-output context.
func (p *Pipeline) cancelled(err error, chaptersProcessed int, outputPath string) *PipelineError {
	return &PipelineError{
		Stage:             "translating",
		Message:           "job cancelled",
		ChaptersProcessed: chaptersProcessed,
		OutputPath:        outputPath,
		Err:               err,
	}
}

// OutputPath derives the translated archive location from the source book.
func OutputPath(bookPath string) string {
	ext := filepath.Ext(bookPath)
	base := strings.TrimSuffix(bookPath, ext)
	if ext == "" {
		ext = ".epub"
	}
	return base + "_translated" + ext
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

// emitProgress forwards progress updates when callback is configured.
func emitProgress(cb func(p Progress), p Progress) {
	if cb != nil {
		cb(p)
	}
}
