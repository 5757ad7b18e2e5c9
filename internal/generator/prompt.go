package generator

import (
	"fmt"
	"strings"

	"github.com/valpere/listingfix/internal/chunker"
	"github.com/valpere/listingfix/internal/rules"
)

const (
	firstAttemptTemperature = 0.3
	retryTemperature        = 1.0
)

// Temperature returns the sampling temperature for an attempt: low on the
// first try, high on retries so the model does not repeat itself.
func Temperature(attempt int) float64 {
	if attempt <= 1 {
		return firstAttemptTemperature
	}
	return retryTemperature
}

// SystemPrompt lists every hard rule of the catalog and the expected output
// shape.
func SystemPrompt(c rules.Catalog) string {
	var sb strings.Builder

	sb.WriteString("You write product listing content for an online marketplace.\n")
	sb.WriteString("Respond with a single JSON object and nothing else, no explanations and no code fences:\n")
	sb.WriteString(`{"title": string, "bullets": [string, ...], "description": string, "meta_title": string, "meta_description": string}`)
	sb.WriteString("\n\nHARD RULES (every one is checked automatically):\n")
	fmt.Fprintf(&sb, "- title: at most %d characters, must contain the brand name\n", c.TitleMaxChars)
	fmt.Fprintf(&sb, "- bullets: exactly %d items, each at most %d characters, plain text without HTML\n", c.BulletCount, c.BulletMaxChars)
	fmt.Fprintf(&sb, "- description: %d to %d words, must contain the brand name\n", c.DescriptionMinWords, c.DescriptionMaxWords)
	fmt.Fprintf(&sb, "- meta_title: at most %d characters\n", c.MetaTitleMaxChars)
	fmt.Fprintf(&sb, "- meta_description: at most %d characters\n", c.MetaDescriptionMaxChars)
	sb.WriteString("- every keyword must appear word for word in the title, bullets or description\n")

	if len(c.Banned) > 0 {
		fmt.Fprintf(&sb, "- never use these words: %s\n", strings.Join(c.Terms(), ", "))
		sb.WriteString("  suggested alternatives:\n")
		for _, b := range c.Banned {
			if len(b.Synonyms) > 0 {
				fmt.Fprintf(&sb, "  %s → %s\n", b.Term, strings.Join(b.Synonyms, ", "))
			}
		}
	}
	if len(c.ClaimVerbs) > 0 {
		fmt.Fprintf(&sb, "- no medical claims: never use the verbs %s in any form\n", strings.Join(c.ClaimVerbs, ", "))
	}
	if c.Language != "" {
		fmt.Fprintf(&sb, "- write everything in the language with ISO code %q\n", c.Language)
	}

	sb.WriteString("\nIf any rule fails the listing is rejected, so check every rule before answering.")
	return sb.String()
}

// UserPrompt describes the product and, on retries, the violations of the
// previous attempt.
func UserPrompt(req Request) string {
	var sb strings.Builder
	p := req.Product

	fmt.Fprintf(&sb, "Brand: %s\n", p.Brand)
	fmt.Fprintf(&sb, "Product type: %s\n", p.ProductType)

	if len(p.Keywords) > 0 {
		sb.WriteString("Keywords (all required):\n")
		for _, kw := range p.Keywords {
			fmt.Fprintf(&sb, "- %s\n", kw.Label())
		}
	}

	if p.CurrentDescription != "" {
		fmt.Fprintf(&sb, "\nCurrent description (for reference only, do not copy banned words):\n%s\n", chunker.Lead(p.CurrentDescription, 0))
	}
	if len(p.CurrentBullets) > 0 {
		sb.WriteString("\nCurrent bullets (for reference only):\n")
		for _, b := range p.CurrentBullets {
			fmt.Fprintf(&sb, "- %s\n", b)
		}
	}

	if len(req.Feedback) > 0 {
		sb.WriteString("\nYour previous attempt broke these rules. Fix every one of them:\n")
		for _, v := range req.Feedback {
			fmt.Fprintf(&sb, "- %s\n", v.String())
		}
	}

	return sb.String()
}
