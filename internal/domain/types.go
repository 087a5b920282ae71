package domain

// JobPhase tracks each stage of a single translation job.
type JobPhase string

const (
	JobPhaseIdle        JobPhase = "idle"
	JobPhaseLoading     JobPhase = "loading"
	JobPhaseTranslating JobPhase = "translating"
	JobPhaseSaving      JobPhase = "saving"
	JobPhaseComplete    JobPhase = "complete"
	JobPhaseError       JobPhase = "error"
	JobPhaseCancelled   JobPhase = "cancelled"
)

// IsTerminal reports whether a phase ends the job lifecycle.
func (p JobPhase) IsTerminal() bool {
	switch p {
	case JobPhaseComplete, JobPhaseError, JobPhaseCancelled:
		return true
	default:
		return false
	}
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	Backend   BackendConfig `json:"backend"`
	ChunkSize int           `json:"chunkSize"`
}

// Job stores the current job identity and lifecycle phase.
type Job struct {
	ID    string   `json:"id"`
	Phase JobPhase `json:"phase"`
}

// TranslationResult is the terminal outcome of one translation job.
type TranslationResult struct {
	Success           bool   `json:"success"`
	OutputPath        string `json:"outputPath,omitempty"`
	Error             string `json:"error,omitempty"`
	ChaptersProcessed int    `json:"chaptersProcessed"`
}
