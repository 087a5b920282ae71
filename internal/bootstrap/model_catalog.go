package bootstrap

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ebook-translator/internal/domain"
)

const (
	catalogTimeout   = 15 * time.Second
	modelPullTimeout = 45 * time.Minute

	openRouterModelsURL = "https://openrouter.ai/api/v1/models"
	geminiModelsURL     = "https://generativelanguage.googleapis.com/v1beta/models"
)

// recommendedOllamaModels are shown even before anything is pulled locally,
// so a fresh install has one-click choices.
var recommendedOllamaModels = []domain.ModelOption{
	{ID: "llama3.1:8b", Name: "Llama 3.1 8B", Description: "Good default for local translation."},
	{ID: "qwen2.5:14b", Name: "Qwen 2.5 14B", Description: "Stronger multilingual model, needs more memory."},
	{ID: "mistral-nemo:12b", Name: "Mistral Nemo 12B", Description: "Solid European language coverage."},
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type openRouterModelsResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

type geminiModelsResponse struct {
	Models []struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"models"`
}

// ListBackendModels queries the configured backend for selectable models.
// For Ollama the recommended presets are merged with locally pulled models.
func (a *App) ListBackendModels() ([]domain.ModelOption, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	cfg := settings.Backend

	client := resty.New().SetTimeout(catalogTimeout)
	switch cfg.Kind {
	case domain.BackendOllama:
		return listOllamaModels(client, cfg)
	case domain.BackendOpenRouter:
		return listOpenRouterModels(client, cfg)
	case domain.BackendGemini:
		return listGeminiModels(client, cfg)
	default:
		return nil, fmt.Errorf("unknown backend kind: %q", cfg.Kind)
	}
}

// listOllamaModels merges recommended presets with installed tags.
func listOllamaModels(client *resty.Client, cfg domain.BackendConfig) ([]domain.ModelOption, error) {
	base := cfg.BaseURL
	if base == "" {
		base = domain.DefaultOllamaBaseURL
	}

	var tags ollamaTagsResponse
	resp, err := client.R().SetResult(&tags).Get(base + "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("list local models: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list local models: status %d", resp.StatusCode())
	}

	installed := make(map[string]bool, len(tags.Models))
	for _, m := range tags.Models {
		installed[m.Name] = true
	}

	options := make([]domain.ModelOption, 0, len(recommendedOllamaModels)+len(tags.Models))
	seen := map[string]bool{}
	for _, preset := range recommendedOllamaModels {
		preset.Installed = installed[preset.ID]
		options = append(options, preset)
		seen[preset.ID] = true
	}
	for _, m := range tags.Models {
		if seen[m.Name] {
			continue
		}
		options = append(options, domain.ModelOption{ID: m.Name, Name: m.Name, Installed: true})
	}
	return options, nil
}

// listOpenRouterModels fetches the hosted catalog.
func listOpenRouterModels(client *resty.Client, cfg domain.BackendConfig) ([]domain.ModelOption, error) {
	url := openRouterModelsURL
	if cfg.BaseURL != "" {
		url = cfg.BaseURL + "/models"
	}

	var out openRouterModelsResponse
	resp, err := client.R().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetResult(&out).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list models: status %d", resp.StatusCode())
	}

	options := make([]domain.ModelOption, 0, len(out.Data))
	for _, m := range out.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		options = append(options, domain.ModelOption{ID: m.ID, Name: name, Installed: true})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].ID < options[j].ID })
	return options, nil
}

// listGeminiModels fetches the hosted catalog.
func listGeminiModels(client *resty.Client, cfg domain.BackendConfig) ([]domain.ModelOption, error) {
	url := geminiModelsURL
	if cfg.BaseURL != "" {
		url = cfg.BaseURL + "/v1beta/models"
	}

	var out geminiModelsResponse
	resp, err := client.R().
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetResult(&out).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list models: status %d", resp.StatusCode())
	}

	options := make([]domain.ModelOption, 0, len(out.Models))
	for _, m := range out.Models {
		id := strings.TrimPrefix(m.Name, "models/")
		name := m.DisplayName
		if name == "" {
			name = id
		}
		options = append(options, domain.ModelOption{ID: id, Name: name, Installed: true})
	}
	return options, nil
}

// PullOllamaModel downloads a model into the local Ollama server, stores it
// as the configured model and refreshes diagnostics.
func (a *App) PullOllamaModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if settings.Backend.Kind != domain.BackendOllama {
		return domain.Settings{}, fmt.Errorf("model pulls are only supported for the ollama backend")
	}

	base := settings.Backend.BaseURL
	if base == "" {
		base = domain.DefaultOllamaBaseURL
	}

	client := resty.New().SetTimeout(modelPullTimeout)
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"name": id, "stream": false}).
		Post(base + "/api/pull")
	if err != nil {
		return domain.Settings{}, fmt.Errorf("pull model %s: %w", id, err)
	}
	if resp.IsError() {
		return domain.Settings{}, fmt.Errorf("pull model %s: status %d", id, resp.StatusCode())
	}

	settings.Backend.Model = id
	updated, err := a.SaveSettings(settings)
	if err != nil {
		return domain.Settings{}, err
	}
	return updated, nil
}
