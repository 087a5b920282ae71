package config

import (
	"ebook-translator/internal/domain"
)

// DefaultChunkSize bounds how many characters of chapter text are sent to a
// backend in one request.
const DefaultChunkSize = 2500

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Backend: domain.BackendConfig{
			Kind:    domain.BackendOllama,
			BaseURL: domain.DefaultOllamaBaseURL,
		},
		ChunkSize: DefaultChunkSize,
	}
}
