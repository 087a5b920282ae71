// Package bootstrap wires configuration, jobs, the translation pipeline and
// the Wails UI runtime into one application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"ebook-translator/internal/config"
	"ebook-translator/internal/diagnostics"
	"ebook-translator/internal/domain"
	"ebook-translator/internal/jobs"
	"ebook-translator/internal/translate"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var bookDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "EPUB books",
		Pattern:     "*.epub",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, jobs, pipeline, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Pipeline    pipelineRunner
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	registry    *jobs.Registry

	mu         sync.Mutex
	lastResult domain.TranslationResult
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// pipelineRunner isolates the translation pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req translate.Request) (translate.Result, error)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".ebook-translator", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Pipeline:    translate.NewPipeline(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		registry:    jobs.NewRegistry(),
		events:      jobs.NewEventBus(1000),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Ebook Translator",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.registry.CancelAll()
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// PickBookFile opens a native file dialog for book selection.
func (a *App) PickBookFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select book",
		Filters: bookDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the folder holding the given path in the platform
// file manager. With an empty path the last job's output is used.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.lastResult.OutputPath
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns backend checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()
	return report, nil
}

// StartTranslation creates a job for the given book and runs it asynchronously.
func (a *App) StartTranslation(bookPath string) (domain.Job, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}

	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.registry.Add(jobID, cancel)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()
	a.publishPhase(jobID, domain.JobPhaseLoading, "Job started")

	go a.runTranslationJob(ctx, jobID, bookPath, settings)
	return a.Jobs.Current(), nil
}

// CancelTranslation cancels the job with the given ID and reports whether it
// was known and still running.
func (a *App) CancelTranslation(jobID string) bool {
	if !a.registry.Cancel(jobID) {
		return false
	}

	if err := a.Jobs.Cancel(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		return true
	}
	a.publishPhase(jobID, domain.JobPhaseCancelled, "Cancellation requested")
	return true
}

// CurrentJob returns current job metadata and phase.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// LastResult returns the outcome of the most recently finished job.
func (a *App) LastResult() domain.TranslationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResult
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runTranslationJob executes the pipeline and maps outcomes to job events.
func (a *App) runTranslationJob(ctx context.Context, jobID, bookPath string, settings domain.Settings) {
	req := translate.Request{
		JobID:     jobID,
		BookPath:  bookPath,
		Backend:   settings.Backend,
		ChunkSize: settings.ChunkSize,
		OnStage: func(stage string) {
			phase, ok := mapStageToPhase(stage)
			if !ok {
				return
			}
			if err := a.Jobs.Transition(phase); err == nil {
				a.publishPhase(jobID, phase, "Entered "+stage+" phase")
			}
		},
		OnProgress: func(p translate.Progress) {
			a.publishEvent(jobs.FromSnapshot(domain.ProgressSnapshot{
				JobID:        jobID,
				Phase:        a.Jobs.Current().Phase,
				ChapterIndex: p.ChapterIndex,
				ChapterTotal: p.ChapterTotal,
				ChunkIndex:   p.ChunkIndex,
				ChunkTotal:   p.ChunkTotal,
				Percent:      p.Percent,
			}))
		},
	}

	result, err := a.Pipeline.Run(ctx, req)
	if err != nil {
		var pipeErr *translate.PipelineError
		errors.As(err, &pipeErr)

		outcome := domain.TranslationResult{
			Success: false,
			Error:   err.Error(),
		}
		if pipeErr != nil {
			outcome.OutputPath = pipeErr.OutputPath
			outcome.ChaptersProcessed = pipeErr.ChaptersProcessed
		}

		if errors.Is(err, context.Canceled) {
			_ = a.Jobs.Transition(domain.JobPhaseCancelled)
			a.publishPhase(jobID, domain.JobPhaseCancelled, "Job cancelled")
		} else {
			_ = a.Jobs.Transition(domain.JobPhaseError)
			a.publishPhase(jobID, domain.JobPhaseError, "Job failed")
			a.publishEvent(jobs.Event{
				JobID:             jobID,
				Type:              jobs.EventTypeError,
				Phase:             domain.JobPhaseError,
				Message:           err.Error(),
				OutputPath:        outcome.OutputPath,
				ChaptersProcessed: outcome.ChaptersProcessed,
			})
		}

		a.finishJob(jobID, outcome)
		return
	}

	if err := a.Jobs.Transition(domain.JobPhaseComplete); err == nil {
		a.publishPhase(jobID, domain.JobPhaseComplete, "Job completed")
	}
	now := time.Now().UTC()
	final := jobs.FromSnapshot(domain.ProgressSnapshot{
		JobID:       jobID,
		Phase:       domain.JobPhaseComplete,
		Percent:     100,
		OutputPath:  result.OutputPath,
		CompletedAt: &now,
	})
	final.Message = "Translated book written"
	final.ChaptersProcessed = result.ChaptersProcessed
	a.publishEvent(final)
	a.finishJob(jobID, domain.TranslationResult{
		Success:           true,
		OutputPath:        result.OutputPath,
		ChaptersProcessed: result.ChaptersProcessed,
	})
}

// publishPhase sends a normalized phase event.
func (a *App) publishPhase(jobID string, phase domain.JobPhase, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypePhase,
		Phase:   phase,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "translation:progress", published)
	}
}

// finishJob records the outcome and releases the cancellation handle.
func (a *App) finishJob(jobID string, outcome domain.TranslationResult) {
	a.mu.Lock()
	a.lastResult = outcome
	a.mu.Unlock()
	a.registry.Remove(jobID)
}

// mapStageToPhase maps pipeline stage names to job phases.
func mapStageToPhase(stage string) (domain.JobPhase, bool) {
	switch stage {
	case "loading":
		return domain.JobPhaseLoading, true
	case "translating":
		return domain.JobPhaseTranslating, true
	case "saving":
		return domain.JobPhaseSaving, true
	default:
		return "", false
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.Backend.Model = strings.TrimSpace(settings.Backend.Model)
	settings.Backend.APIKey = strings.TrimSpace(settings.Backend.APIKey)
	settings.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(settings.Backend.BaseURL), "/")
	if settings.Backend.Kind == "" {
		settings.Backend.Kind = domain.BackendOllama
	}
	if settings.Backend.Kind == domain.BackendOllama && settings.Backend.BaseURL == "" {
		settings.Backend.BaseURL = domain.DefaultOllamaBaseURL
	}
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = config.DefaultChunkSize
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
