package domain

import "fmt"

// BackendKind selects one of the interchangeable translation backends.
type BackendKind string

const (
	// BackendOllama is a locally hosted model server.
	BackendOllama BackendKind = "ollama"
	// BackendOpenRouter is a hosted OpenAI-compatible provider.
	BackendOpenRouter BackendKind = "openrouter"
	// BackendGemini is the hosted Google generative language API.
	BackendGemini BackendKind = "gemini"
)

// ModelOption is one selectable model reported by a backend.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Installed   bool   `json:"installed"`
}

// DefaultOllamaBaseURL points at a local Ollama server on its stock port.
const DefaultOllamaBaseURL = "http://localhost:11434"

// BackendConfig carries the fields required to call one backend variant.
// Exactly one variant is active per job.
type BackendConfig struct {
	Kind    BackendKind `json:"kind"`
	Model   string      `json:"model"`
	APIKey  string      `json:"apiKey,omitempty"`
	BaseURL string      `json:"baseUrl,omitempty"`
}

// Validate checks that all fields required by the selected variant are set.
func (c BackendConfig) Validate() error {
	switch c.Kind {
	case BackendOllama:
		if c.Model == "" {
			return fmt.Errorf("ollama backend requires a model name")
		}
	case BackendOpenRouter:
		if c.Model == "" {
			return fmt.Errorf("openrouter backend requires a model name")
		}
		if c.APIKey == "" {
			return fmt.Errorf("openrouter backend requires an API key")
		}
	case BackendGemini:
		if c.Model == "" {
			return fmt.Errorf("gemini backend requires a model name")
		}
		if c.APIKey == "" {
			return fmt.Errorf("gemini backend requires an API key")
		}
	default:
		return fmt.Errorf("unknown backend kind: %q", c.Kind)
	}
	return nil
}
