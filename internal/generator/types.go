// Package generator defines the content generator contract and its
// implementations: hosted LLM APIs, a local Ollama model, and a
// deterministic fallback that builds a candidate straight from the context.
package generator

import (
	"context"
	"errors"
	"time"

	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/rules"
)

// ErrUnavailable marks a generator failure the caller should recover from
// by falling back: network errors, timeouts, quota and non-OK responses.
var ErrUnavailable = errors.New("generator unavailable")

// Config selects and configures a generator.
type Config struct {
	Provider string   `mapstructure:"provider" json:"provider"`
	APIKey   string   `mapstructure:"api_key" json:"api_key"`
	Models   []string `mapstructure:"models" json:"models"`
	BaseURL  string   `mapstructure:"base_url" json:"base_url"`
	// RequestsPerMinute caps calls to the provider; 0 disables limiting.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	Burst             int     `mapstructure:"burst" json:"burst"`
	MaxTokens         int     `mapstructure:"max_tokens" json:"max_tokens"`
}

// Request is one generation call. Feedback carries the violations of the
// previous attempt and is empty on the first one.
type Request struct {
	Product  content.Context
	Catalog  rules.Catalog
	Feedback []content.Violation
	// Attempt is 1-based.
	Attempt int
}

// Result is what a generator produced. Raw holds the unparsed model output
// for logging.
type Result struct {
	ServiceName string            `json:"service_name"`
	Candidate   content.Candidate `json:"candidate"`
	Raw         string            `json:"raw,omitempty"`
	Metadata    map[string]string `json:"metadata"`
	Latency     time.Duration     `json:"latency"`
	Error       string            `json:"error,omitempty"`
}

// Generator produces candidates. Generate returns an error wrapping
// ErrUnavailable when the backend could not be reached, or
// content.ErrMalformedCandidate when its output could not be read.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
	IsAvailable(ctx context.Context) error
}
