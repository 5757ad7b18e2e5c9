package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator generates candidates with Google's Gemini API, asking for
// a JSON response.
type GeminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewGeminiGenerator(ctx context.Context, apiKey, baseURL, model string, maxTokens int) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key missing; provide generator.api_key or GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

func (g *GeminiGenerator) Name() string {
	return "gemini"
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{ServiceName: g.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(UserPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(req.Catalog), genai.RoleUser),
		Temperature:       genai.Ptr(float32(Temperature(req.Attempt))),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: gemini: %v", ErrUnavailable, err)
	}

	raw := resp.Text()
	if raw == "" {
		result.Error = "empty response"
		return result, fmt.Errorf("%w: gemini: empty response", ErrUnavailable)
	}

	result.Raw = raw
	result.Metadata = map[string]string{"model": g.model}
	if resp.UsageMetadata != nil {
		result.Metadata["prompt_tokens"] = fmt.Sprintf("%d", resp.UsageMetadata.PromptTokenCount)
		result.Metadata["completion_tokens"] = fmt.Sprintf("%d", resp.UsageMetadata.CandidatesTokenCount)
	}

	candidate, err := decode(raw)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.Candidate = candidate
	return result, nil
}

func (g *GeminiGenerator) IsAvailable(ctx context.Context) error {
	return nil
}
