// Package backend sends chunk translation requests to the configured
// model backend and normalizes errors into retryable and fatal classes.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ebook-translator/internal/domain"
)

const (
	// DefaultCallTimeout bounds a single backend call.
	DefaultCallTimeout = 180 * time.Second
	// DefaultAttempts is the number of tries per chunk, including the first.
	DefaultAttempts = 3
	// DefaultBackoffUnit is multiplied by the attempt number between retries.
	DefaultBackoffUnit = 2 * time.Second

	defaultTemperature    = 0.7
	minGenerationTokens   = 1024
	defaultOpenRouterBase = "https://openrouter.ai/api/v1"
	defaultGeminiBase     = "https://generativelanguage.googleapis.com"
	appTitle              = "Ebook Translator"
)

// Dispatcher performs a single chunk translation with retry, backoff and
// cancellation handling against the configured backend.
type Dispatcher struct {
	client      *resty.Client
	attempts    int
	backoffUnit time.Duration
	callTimeout time.Duration
}

// NewDispatcher builds a dispatcher with production retry policy.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		client:      resty.New(),
		attempts:    DefaultAttempts,
		backoffUnit: DefaultBackoffUnit,
		callTimeout: DefaultCallTimeout,
	}
}

// NewDispatcherForTests builds a dispatcher with injected retry policy so
// tests can run with short backoff and timeouts.
func NewDispatcherForTests(attempts int, backoffUnit, callTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		client:      resty.New(),
		attempts:    attempts,
		backoffUnit: backoffUnit,
		callTimeout: callTimeout,
	}
}

// Translate sends one chunk to the backend and returns the translated text.
// Transient failures are retried with linear backoff. A blank backend reply
// yields the original chunk unchanged. Fatal and cancellation errors are
// returned immediately.
func (d *Dispatcher) Translate(ctx context.Context, chunk, systemPrompt string, cfg domain.BackendConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", &ConfigError{Kind: cfg.Kind, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		out, err := d.call(ctx, chunk, systemPrompt, cfg)
		if err == nil {
			if strings.TrimSpace(out) == "" {
				return chunk, nil
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if IsFatal(err) {
			return "", err
		}
		lastErr = err
		if attempt < d.attempts {
			if err := sleepCtx(ctx, time.Duration(attempt)*d.backoffUnit); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

// call performs one backend request bounded by the per-call timeout.
func (d *Dispatcher) call(ctx context.Context, chunk, systemPrompt string, cfg domain.BackendConfig) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	switch cfg.Kind {
	case domain.BackendOllama:
		return d.callOllama(callCtx, chunk, systemPrompt, cfg)
	case domain.BackendOpenRouter:
		return d.callOpenRouter(callCtx, chunk, systemPrompt, cfg)
	case domain.BackendGemini:
		return d.callGemini(callCtx, chunk, systemPrompt, cfg)
	default:
		return "", &ConfigError{Kind: cfg.Kind, Err: fmt.Errorf("unknown backend kind %q", cfg.Kind)}
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

func (d *Dispatcher) callOllama(ctx context.Context, chunk, systemPrompt string, cfg domain.BackendConfig) (string, error) {
	base := cfg.BaseURL
	if base == "" {
		base = domain.DefaultOllamaBaseURL
	}
	body := ollamaChatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: chunk},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: defaultTemperature, NumPredict: tokenBudget(chunk)},
	}
	var out ollamaChatResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(base + "/api/chat")
	if err != nil {
		return "", classifyTransport(cfg.Kind, err)
	}
	if resp.IsError() || out.Error != "" {
		return "", classifyResponse(cfg.Kind, resp.StatusCode(), out.Error)
	}
	return out.Message.Content, nil
}

type openRouterRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type openRouterResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

func (d *Dispatcher) callOpenRouter(ctx context.Context, chunk, systemPrompt string, cfg domain.BackendConfig) (string, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenRouterBase
	}
	body := openRouterRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: chunk},
		},
		Temperature: defaultTemperature,
		MaxTokens:   tokenBudget(chunk),
	}
	var out openRouterResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("X-Title", appTitle).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(base + "/chat/completions")
	if err != nil {
		return "", classifyTransport(cfg.Kind, err)
	}
	if resp.IsError() || out.Error != nil {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", classifyResponse(cfg.Kind, resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

type geminiRequest struct {
	SystemInstruction geminiContent    `json:"systemInstruction"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  geminiGeneration `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGeneration struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

func (d *Dispatcher) callGemini(ctx context.Context, chunk, systemPrompt string, cfg domain.BackendConfig) (string, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultGeminiBase
	}
	body := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: chunk}}},
		},
		GenerationConfig: geminiGeneration{Temperature: defaultTemperature, MaxOutputTokens: tokenBudget(chunk)},
	}
	var out geminiResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, cfg.Model))
	if err != nil {
		return "", classifyTransport(cfg.Kind, err)
	}
	if resp.IsError() || out.Error != nil {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", classifyResponse(cfg.Kind, resp.StatusCode(), msg)
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// classifyTransport maps a transport-level failure to transient unless the
// surrounding context was cancelled.
func classifyTransport(kind domain.BackendKind, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Kind: kind, Err: err}
}

// classifyResponse maps a backend error reply to fatal or transient.
func classifyResponse(kind domain.BackendKind, status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("status %d", status)
	}
	if fatalStatus(status) || fatalMessage(message) {
		return &FatalError{Kind: kind, Status: status, Message: message}
	}
	return &TransientError{Kind: kind, Err: fmt.Errorf("%s (status %d)", message, status)}
}

// tokenBudget sizes the generation limit to the chunk with a floor so short
// chunks still get full replies.
func tokenBudget(chunk string) int {
	budget := len(chunk)
	if budget < minGenerationTokens {
		budget = minGenerationTokens
	}
	return budget
}

// sleepCtx waits for the backoff duration unless the context is cancelled
// first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
