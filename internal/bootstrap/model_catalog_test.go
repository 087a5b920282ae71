package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ebook-translator/internal/domain"
	"ebook-translator/internal/jobs"
)

func catalogApp(settings domain.Settings) *App {
	return &App{
		Store:    &fakeStore{settings: settings},
		Jobs:     jobs.NewManager(),
		registry: jobs.NewRegistry(),
		events:   jobs.NewEventBus(100),
	}
}

// TestListBackendModelsMergesOllamaTags verifies preset and local merging.
func TestListBackendModelsMergesOllamaTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "llama3.1:8b"},
				{"name": "custom-model:latest"},
			},
		})
	}))
	defer server.Close()

	app := catalogApp(domain.Settings{
		Backend: domain.BackendConfig{Kind: domain.BackendOllama, Model: "llama3.1:8b", BaseURL: server.URL},
	})
	options, err := app.ListBackendModels()
	if err != nil {
		t.Fatalf("ListBackendModels failed: %v", err)
	}

	byID := map[string]domain.ModelOption{}
	for _, opt := range options {
		byID[opt.ID] = opt
	}
	if !byID["llama3.1:8b"].Installed {
		t.Error("pulled preset must be marked installed")
	}
	if byID["qwen2.5:14b"].Installed {
		t.Error("missing preset must not be marked installed")
	}
	if _, ok := byID["custom-model:latest"]; !ok {
		t.Error("local-only model missing from catalog")
	}
}

// TestListBackendModelsOpenRouter verifies the hosted catalog path.
func TestListBackendModelsOpenRouter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "meta/llama-3-70b", "name": "Llama 3 70B"},
				{"id": "anthropic/claude-3", "name": ""},
			},
		})
	}))
	defer server.Close()

	app := catalogApp(domain.Settings{
		Backend: domain.BackendConfig{Kind: domain.BackendOpenRouter, Model: "x", APIKey: "sk-test", BaseURL: server.URL},
	})
	options, err := app.ListBackendModels()
	if err != nil {
		t.Fatalf("ListBackendModels failed: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("got %d options, want 2", len(options))
	}
	if options[0].ID != "anthropic/claude-3" {
		t.Errorf("options not sorted by id: %+v", options)
	}
	if options[0].Name != "anthropic/claude-3" {
		t.Errorf("missing display name must fall back to id: %q", options[0].Name)
	}
}

// TestPullOllamaModelUpdatesSettings verifies pull and settings update.
func TestPullOllamaModelUpdatesSettings(t *testing.T) {
	var pulled string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/pull":
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			pulled, _ = req["name"].(string)
			w.Write([]byte(`{"status":"success"}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	app := catalogApp(domain.Settings{
		Backend: domain.BackendConfig{Kind: domain.BackendOllama, BaseURL: server.URL},
	})
	settings, err := app.PullOllamaModel("qwen2.5:14b")
	if err != nil {
		t.Fatalf("PullOllamaModel failed: %v", err)
	}
	if pulled != "qwen2.5:14b" {
		t.Errorf("server saw pull for %q", pulled)
	}
	if settings.Backend.Model != "qwen2.5:14b" {
		t.Errorf("settings model = %q", settings.Backend.Model)
	}
}

// TestPullOllamaModelRejectsHostedBackends verifies the guard.
func TestPullOllamaModelRejectsHostedBackends(t *testing.T) {
	app := catalogApp(domain.Settings{
		Backend: domain.BackendConfig{Kind: domain.BackendOpenRouter, Model: "m", APIKey: "k"},
	})
	if _, err := app.PullOllamaModel("anything"); err == nil {
		t.Fatal("expected an error for non-ollama backends")
	}
}
