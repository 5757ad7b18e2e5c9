package generator

import (
	"context"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{name: "empty provider", cfg: Config{}, wantNil: true},
		{name: "none", cfg: Config{Provider: "none"}, wantNil: true},
		{name: "fallback", cfg: Config{Provider: "Fallback"}, wantNil: true},
		{name: "ollama", cfg: Config{Provider: "ollama"}, wantName: "ollama"},
		{name: "openrouter", cfg: Config{Provider: "openrouter", APIKey: "k", MaxTokens: 512}, wantName: "openrouter"},
		{name: "openai", cfg: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "openai without key", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "gemini", cfg: Config{Provider: "gemini", APIKey: "k"}, wantName: "gemini"},
		{name: "gemini without key", cfg: Config{Provider: "gemini"}, wantErr: true},
		{name: "unknown", cfg: Config{Provider: "bard"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if gen != nil {
					t.Errorf("expected no generator, got %s", gen.Name())
				}
				return
			}
			if gen.Name() != tt.wantName {
				t.Errorf("expected %q, got %q", tt.wantName, gen.Name())
			}
		})
	}
}

func TestNew_RateLimited(t *testing.T) {
	gen, err := New(context.Background(), Config{Provider: "ollama", RequestsPerMinute: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.(*RateLimited); !ok {
		t.Errorf("expected a rate-limited generator, got %T", gen)
	}
}

func TestNew_OpenRouterMaxTokens(t *testing.T) {
	gen, err := New(context.Background(), Config{Provider: "openrouter", APIKey: "k", MaxTokens: 512})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if or := gen.(*OpenRouterGenerator); or.maxTokens != 512 {
		t.Errorf("expected max tokens 512, got %d", or.maxTokens)
	}
}
