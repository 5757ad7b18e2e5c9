package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"mistralai/mistral-nemo:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

// OpenRouterGenerator calls the OpenRouter chat completions API, picking a
// model at random from its list on every call.
type OpenRouterGenerator struct {
	apiKey    string
	baseURL   string
	models    []string
	maxTokens int
	client    *http.Client
}

func NewOpenRouterGenerator(apiKey string, baseURL string, models []string) *OpenRouterGenerator {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	return &OpenRouterGenerator{
		apiKey:    apiKey,
		baseURL:   baseURL,
		models:    models,
		maxTokens: 2048,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OpenRouterGenerator) Name() string {
	return "openrouter"
}

func (s *OpenRouterGenerator) getRandomModel() string {
	if len(s.models) == 0 {
		return "google/gemini-2.0-flash-exp:free"
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *OpenRouterGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.apiKey == "" {
		result.Error = "OpenRouter API key required"
		return result, fmt.Errorf("%w: OpenRouter API key required", ErrUnavailable)
	}

	model := s.getRandomModel()

	openrouterReq := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": SystemPrompt(req.Catalog)},
			{"role": "user", "content": UserPrompt(req)},
		},
		"temperature":     Temperature(req.Attempt),
		"max_tokens":      s.maxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(openrouterReq)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	httpReq.Header.Set("HTTP-Referer", "https://listingfix.local")
	httpReq.Header.Set("X-Title", "ListingFix")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, fmt.Errorf("%w: openrouter: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		result.Error = fmt.Sprintf("API returned status %d: %v", resp.StatusCode, errResp)
		return result, fmt.Errorf("%w: openrouter returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var openrouterResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, fmt.Errorf("%w: openrouter: %v", ErrUnavailable, err)
	}

	if len(openrouterResp.Choices) == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("%w: openrouter: empty response", ErrUnavailable)
	}

	raw := openrouterResp.Choices[0].Message.Content
	result.Raw = raw
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     fmt.Sprintf("%d", openrouterResp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", openrouterResp.Usage.CompletionTokens),
	}

	candidate, err := decode(raw)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.Candidate = candidate
	return result, nil
}

func (s *OpenRouterGenerator) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: OpenRouter API key not configured", ErrUnavailable)
	}
	return nil
}

func (s *OpenRouterGenerator) GetModels() []string {
	return s.models
}
