package domain

import "time"

// ProgressSnapshot is one point-in-time view of a running job, suitable for
// rendering a single monotonic progress bar and computing an ETA.
type ProgressSnapshot struct {
	JobID        string     `json:"jobId"`
	Phase        JobPhase   `json:"phase"`
	ChapterIndex int        `json:"chapterIndex"`
	ChapterTotal int        `json:"chapterTotal"`
	ChunkIndex   int        `json:"chunkIndex"`
	ChunkTotal   int        `json:"chunkTotal"`
	Percent      float64    `json:"percent"`
	OutputPath   string     `json:"outputPath,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}
