package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"ebook-translator/internal/domain"
)

// Store persists the user's backend configuration and chunking preferences
// between application runs.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore keeps the settings in one JSON file under the user's home
// directory.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the stored settings. A missing file is not an error; first-run
// users get the Ollama defaults.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, err
	}

	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.Settings{}, err
	}

	return settings, nil
}

// Save writes the settings as indented JSON, creating parent directories on
// first save.
func (s *JSONStore) Save(settings domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}
