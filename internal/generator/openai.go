package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator uses the official openai-go SDK (chat completions). Any
// OpenAI-compatible endpoint works through BaseURL.
type OpenAIGenerator struct {
	model  string
	client openai.Client
}

func NewOpenAIGenerator(apiKey, baseURL, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; provide generator.api_key or OPENAI_API_KEY")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{model: model, client: openai.NewClient(opts...)}, nil
}

func (o *OpenAIGenerator) Name() string {
	return "openai"
}

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{ServiceName: o.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(req.Catalog)),
			openai.UserMessage(UserPrompt(req)),
		},
		Temperature: openai.Float(Temperature(req.Attempt)),
	})
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: openai: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		result.Error = "empty choices"
		return result, fmt.Errorf("%w: openai: empty choices", ErrUnavailable)
	}

	raw := resp.Choices[0].Message.Content
	result.Raw = raw
	result.Metadata = map[string]string{
		"model":             resp.Model,
		"prompt_tokens":     fmt.Sprintf("%d", resp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", resp.Usage.CompletionTokens),
	}

	candidate, err := decode(raw)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.Candidate = candidate
	return result, nil
}

func (o *OpenAIGenerator) IsAvailable(ctx context.Context) error {
	return nil
}
