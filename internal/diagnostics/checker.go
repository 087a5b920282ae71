// Package diagnostics validates backend configuration and connectivity
// before a translation job is allowed to start.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"ebook-translator/internal/domain"
)

const probeTimeout = 5 * time.Second

const defaultOpenRouterModelsURL = "https://openrouter.ai/api/v1/models"
const defaultGeminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Checker runs startup checks against the configured translation backend.
type Checker struct {
	client *resty.Client
}

// NewChecker builds a checker with a short-timeout HTTP client.
func NewChecker() *Checker {
	return &Checker{
		client: resty.New().SetTimeout(probeTimeout),
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBackendConfig(settings.Backend),
		c.checkBackendReachable(settings.Backend),
		c.checkChunkSize(settings.ChunkSize),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBackendConfig verifies the selected backend has every required field.
func (c *Checker) checkBackendConfig(cfg domain.BackendConfig) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend_config",
		Name: "Backend configuration",
	}
	if err := cfg.Validate(); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Open settings and complete the backend configuration before starting a translation job."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Backend %s with model %s", cfg.Kind, cfg.Model)
	return item
}

// checkBackendReachable probes the backend's model listing endpoint.
func (c *Checker) checkBackendReachable(cfg domain.BackendConfig) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend_reachable",
		Name: "Backend connectivity",
	}
	if err := cfg.Validate(); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Skipped: backend configuration is incomplete."
		item.Hint = "Fix the backend configuration first."
		return item
	}

	req := c.client.R()
	var url string
	switch cfg.Kind {
	case domain.BackendOllama:
		base := cfg.BaseURL
		if base == "" {
			base = domain.DefaultOllamaBaseURL
		}
		url = base + "/api/tags"
	case domain.BackendOpenRouter:
		url = defaultOpenRouterModelsURL
		if cfg.BaseURL != "" {
			url = cfg.BaseURL + "/models"
		}
		req.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	case domain.BackendGemini:
		url = defaultGeminiModelsURL
		if cfg.BaseURL != "" {
			url = cfg.BaseURL + "/v1beta/models"
		}
		req.SetHeader("x-goog-api-key", cfg.APIKey)
	}

	resp, err := req.Get(url)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot reach backend: %v", err)
		item.Hint = reachabilityHint(cfg.Kind)
		return item
	}
	if resp.IsError() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend answered with status %d", resp.StatusCode())
		item.Hint = reachabilityHint(cfg.Kind)
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Backend answered the model listing probe."
	return item
}

// checkChunkSize validates the configured chunk size.
func (c *Checker) checkChunkSize(chunkSize int) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "chunk_size",
		Name: "Chunk size",
	}
	if chunkSize < 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Chunk size is negative: %d", chunkSize)
		item.Hint = "Set a positive chunk size in settings or leave it empty for the default."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	if chunkSize == 0 {
		item.Message = "Chunk size unset, the default will be used."
	} else {
		item.Message = fmt.Sprintf("Chunk size is %d characters.", chunkSize)
	}
	return item
}

// reachabilityHint suggests a fix per backend kind.
func reachabilityHint(kind domain.BackendKind) string {
	switch kind {
	case domain.BackendOllama:
		return "Make sure the Ollama server is running and the base URL points at it."
	case domain.BackendOpenRouter:
		return "Check the OpenRouter API key and your network connection."
	case domain.BackendGemini:
		return "Check the Gemini API key and your network connection."
	default:
		return ""
	}
}
