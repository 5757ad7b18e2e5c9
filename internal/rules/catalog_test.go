package rules

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default catalog should be valid: %v", err)
	}
}

func TestDefault_SynonymsAreNotBanned(t *testing.T) {
	c := Default()
	m := NewMatcher(c)
	for _, b := range c.Banned {
		allowed := 0
		for _, s := range b.Synonyms {
			if !m.HasBanned(s) && !m.HasClaim(s) {
				allowed++
			}
		}
		if allowed == 0 {
			t.Errorf("banned term %q has no usable synonym", b.Term)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Catalog)
	}{
		{"zero bullets", func(c *Catalog) { c.BulletCount = 0 }},
		{"negative bullets", func(c *Catalog) { c.BulletCount = -1 }},
		{"zero bullet length", func(c *Catalog) { c.BulletMaxChars = 0 }},
		{"zero title length", func(c *Catalog) { c.TitleMaxChars = 0 }},
		{"empty word range", func(c *Catalog) { c.DescriptionMinWords, c.DescriptionMaxWords = 100, 50 }},
		{"zero meta title", func(c *Catalog) { c.MetaTitleMaxChars = 0 }},
		{"zero meta description", func(c *Catalog) { c.MetaDescriptionMaxChars = 0 }},
		{"empty banned term", func(c *Catalog) { c.Banned = append(c.Banned, BannedTerm{Term: " "}) }},
		{"duplicate banned term", func(c *Catalog) { c.Banned = append(c.Banned, BannedTerm{Term: "Premium"}) }},
		{"empty claim verb", func(c *Catalog) { c.ClaimVerbs = append(c.ClaimVerbs, "") }},
		{"bad language", func(c *Catalog) { c.Language = "not a tag" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestWithTerms_MergesAndAppends(t *testing.T) {
	base := Catalog{
		Banned: []BannedTerm{{Term: "premium", Synonyms: []string{"quality"}}},
	}

	merged := base.WithTerms([]BannedTerm{
		{Term: "PREMIUM", Synonyms: []string{"quality", "well-made"}},
		{Term: "luxury", Synonyms: []string{"refined"}},
		{Term: "  "},
	})

	want := []BannedTerm{
		{Term: "premium", Synonyms: []string{"quality", "well-made"}},
		{Term: "luxury", Synonyms: []string{"refined"}},
	}
	if diff := cmp.Diff(want, merged.Banned); diff != "" {
		t.Errorf("merged terms mismatch (-want +got):\n%s", diff)
	}

	// The receiver is left alone.
	if len(base.Banned[0].Synonyms) != 1 {
		t.Errorf("WithTerms mutated the original catalog: %v", base.Banned)
	}
}

func TestSynonyms(t *testing.T) {
	c := Default()
	if got := c.Synonyms("Premium"); len(got) == 0 || got[0] != "high-quality" {
		t.Errorf("unexpected synonyms for premium: %v", got)
	}
	if got := c.Synonyms("unknown"); got != nil {
		t.Errorf("expected nil for unknown term, got %v", got)
	}
}
