package generator

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/valpere/listingfix/internal/chunker"
	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/markup"
	"github.com/valpere/listingfix/internal/postprocess"
	"github.com/valpere/listingfix/internal/rules"
	"github.com/valpere/listingfix/internal/validator"
)

const FallbackName = "fallback"

// Fallback builds a candidate directly from the context without any model.
// Its output is designed to pass the catalog on its own; it never fails.
type Fallback struct {
	catalog  rules.Catalog
	matcher  *rules.Matcher
	repairer *postprocess.Repairer
}

func NewFallback(c rules.Catalog) *Fallback {
	return &Fallback{
		catalog:  c,
		matcher:  rules.NewMatcher(c),
		repairer: postprocess.New(c),
	}
}

func (f *Fallback) Name() string {
	return FallbackName
}

func (f *Fallback) IsAvailable(ctx context.Context) error {
	return nil
}

func (f *Fallback) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	return &Result{
		ServiceName: f.Name(),
		Candidate:   f.Synthesize(req.Product),
		Metadata:    map[string]string{"synthesized": "true"},
		Latency:     time.Since(start),
	}, nil
}

// Synthesize assembles a candidate: the title is "{brand} {product type}",
// bullets are one per keyword plus usable current bullets and fillers, and
// the description opens with the brand, names every keyword, then is
// extended with closing sentences into the word range.
func (f *Fallback) Synthesize(ctx content.Context) content.Candidate {
	productType := cases.Title(language.English).String(ctx.ProductType)

	title := strings.TrimSpace(ctx.Brand + " " + productType)
	if title == "" {
		title = "Product"
	}
	if cut, ok := chunker.Truncate(title, f.catalog.TitleMaxChars); ok {
		title = cut
	}

	description := f.repairer.ExtendDescription(f.opening(ctx, productType), ctx)

	metaTitle := title
	if cut, ok := chunker.Truncate(title, f.catalog.MetaTitleMaxChars); ok {
		metaTitle = cut
	}
	metaDescription, ok := chunker.Truncate(description, f.catalog.MetaDescriptionMaxChars)
	if !ok {
		metaDescription = chunker.Lead(description, 10)
	}

	return content.Candidate{
		Title:           title,
		Bullets:         f.bullets(ctx),
		Description:     description,
		MetaTitle:       metaTitle,
		MetaDescription: metaDescription,
	}
}

func (f *Fallback) opening(ctx content.Context, productType string) string {
	noun := strings.ToLower(productType)
	if noun == "" {
		noun = "product"
	}

	var sb strings.Builder
	if ctx.Brand != "" {
		sb.WriteString("Meet the " + noun + " from " + ctx.Brand + ", made for everyday use.")
	} else {
		sb.WriteString("Meet the " + noun + ", made for everyday use.")
	}

	if len(ctx.Keywords) > 0 {
		labels := make([]string, len(ctx.Keywords))
		for i, kw := range ctx.Keywords {
			labels[i] = kw.Label()
		}
		sb.WriteString(" Key features include " + strings.Join(labels, ", ") + ".")
	}
	return sb.String()
}

func (f *Fallback) bullets(ctx content.Context) []string {
	var out []string
	add := func(b string) {
		b = markup.PlainText(b)
		if b == "" || validator.Chars(b) > f.catalog.BulletMaxChars {
			return
		}
		if f.matcher.HasBanned(b) || f.matcher.HasClaim(b) {
			return
		}
		for _, o := range out {
			if strings.EqualFold(o, b) {
				return
			}
		}
		out = append(out, b)
	}

	for _, kw := range ctx.Keywords {
		label := kw.Label()
		if validator.Chars(label) > f.catalog.BulletMaxChars {
			label = kw.Value
		}
		add(label)
	}
	for _, b := range ctx.CurrentBullets {
		add(b)
	}
	return f.repairer.PadBullets(out, ctx)
}
