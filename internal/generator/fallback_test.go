package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/rules"
	"github.com/valpere/listingfix/internal/validator"
)

func TestFallback_SynthesizeIsCompliant(t *testing.T) {
	tests := []struct {
		name string
		ctx  content.Context
	}{
		{
			name: "brand and keyword",
			ctx: content.Context{
				Brand:       "TechBrand",
				ProductType: "Headphones",
				Keywords:    []content.Keyword{{Name: "Color", Value: "Black"}},
			},
		},
		{
			name: "several keywords and current bullets",
			ctx: content.Context{
				Brand:       "Acme",
				ProductType: "garden hose",
				Keywords: []content.Keyword{
					{Name: "Length", Value: "25 ft"},
					{Name: "Material", Value: "Rubber"},
					{Name: "keyword_3", Value: "kink-free"},
				},
				CurrentBullets: []string{"Premium rubber build", "Cures leaks forever", "Brass fittings"},
			},
		},
		{
			name: "empty context",
			ctx:  content.Context{},
		},
	}

	catalog := rules.Default()
	v, err := validator.New(catalog)
	if err != nil {
		t.Fatalf("validator.New: %v", err)
	}
	f := NewFallback(catalog)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.Synthesize(tt.ctx)
			if vs := v.Validate(c, tt.ctx); len(vs) != 0 {
				t.Errorf("expected a compliant candidate, got %v\n%+v", vs, c)
			}
		})
	}
}

func TestFallback_SynthesizeShape(t *testing.T) {
	ctx := content.Context{
		Brand:          "Acme",
		ProductType:    "garden hose",
		Keywords:       []content.Keyword{{Name: "Length", Value: "25 ft"}},
		CurrentBullets: []string{"Premium rubber build", "Brass fittings"},
	}
	c := NewFallback(rules.Default()).Synthesize(ctx)

	if c.Title != "Acme Garden Hose" {
		t.Errorf("unexpected title %q", c.Title)
	}
	if c.Bullets[0] != "Length: 25 ft" {
		t.Errorf("expected keyword bullet first, got %q", c.Bullets)
	}
	if c.Bullets[1] != "Brass fittings" {
		t.Errorf("expected usable current bullet kept, got %q", c.Bullets)
	}
	for _, b := range c.Bullets {
		if strings.Contains(strings.ToLower(b), "premium") {
			t.Errorf("banned current bullet was kept: %q", b)
		}
	}
	if !strings.HasPrefix(c.Description, "Meet the garden hose from Acme") {
		t.Errorf("unexpected description opening %q", c.Description)
	}
}

func TestFallback_Generate(t *testing.T) {
	f := NewFallback(rules.Default())
	result, err := f.Generate(context.Background(), Request{Product: content.Context{Brand: "Acme"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ServiceName != FallbackName {
		t.Errorf("unexpected service name %q", result.ServiceName)
	}
	if result.Candidate.Title == "" {
		t.Error("expected a title")
	}
	if err := f.IsAvailable(context.Background()); err != nil {
		t.Errorf("fallback must always be available: %v", err)
	}
}
