// Package content defines the records a refinement works on: the immutable
// per-request Context, the Candidate under evaluation and the Violations
// found in it.
package content

import (
	"strings"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/markup"
)

// Keyword is an attribute whose value must appear in the generated copy.
type Keyword struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Label renders the keyword as "Name: Value", or just the value when the
// name is a positional placeholder.
func (k Keyword) Label() string {
	if k.Name == "" || strings.HasPrefix(k.Name, "keyword_") || strings.EqualFold(k.Name, "value") {
		return k.Value
	}
	return k.Name + ": " + k.Value
}

// Context holds the facts of one refinement request. It is built once by
// NewContext and must not be modified afterwards.
type Context struct {
	Brand       string
	ProductType string
	// Keywords are ordered by attribute name.
	Keywords []Keyword
	// CurrentDescription and CurrentBullets are generation hints only.
	CurrentDescription string
	CurrentBullets     []string
}

// NewContext derives a Context from an input record. Keywords are the
// non-empty attribute values ordered by attribute name; values repeated
// under another name (case-insensitively) are kept once.
func NewContext(in internal.ProductInput) Context {
	ctx := Context{
		Brand:              strings.TrimSpace(in.Brand),
		ProductType:        strings.TrimSpace(in.ProductType),
		CurrentDescription: markup.ToPlainText(in.CurrentDescription),
	}

	seen := make(map[string]bool)
	for _, name := range in.SortedAttributeNames() {
		value := strings.TrimSpace(in.Attributes[name])
		key := strings.ToLower(value)
		if value == "" || seen[key] {
			continue
		}
		seen[key] = true
		ctx.Keywords = append(ctx.Keywords, Keyword{Name: strings.TrimSpace(name), Value: value})
	}

	for _, b := range in.CurrentBullets {
		if b = markup.PlainText(b); b != "" {
			ctx.CurrentBullets = append(ctx.CurrentBullets, b)
		}
	}
	return ctx
}

// KeywordValues returns the required keyword values in order.
func (c Context) KeywordValues() []string {
	values := make([]string, len(c.Keywords))
	for i, k := range c.Keywords {
		values[i] = k.Value
	}
	return values
}

// ProtectedTerms returns the spans a rewrite must leave intact: the brand
// and every keyword value.
func (c Context) ProtectedTerms() []string {
	terms := make([]string, 0, len(c.Keywords)+1)
	if c.Brand != "" {
		terms = append(terms, c.Brand)
	}
	return append(terms, c.KeywordValues()...)
}

// Candidate is one version of the output record under evaluation. Treat it
// as a value: every repair or generation step returns a new Candidate.
type Candidate struct {
	Title           string   `json:"title"`
	Bullets         []string `json:"bullets"`
	Description     string   `json:"description"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
}

// Clone returns a deep copy of c.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Bullets != nil {
		out.Bullets = append([]string(nil), c.Bullets...)
	}
	return out
}

// Get returns the text of a single-valued field. Bullets are joined with
// newlines.
func (c Candidate) Get(f Field) string {
	switch f {
	case FieldTitle:
		return c.Title
	case FieldBullets:
		return strings.Join(c.Bullets, "\n")
	case FieldDescription:
		return c.Description
	case FieldMetaTitle:
		return c.MetaTitle
	case FieldMetaDescription:
		return c.MetaDescription
	}
	return ""
}

// Set replaces the text of a single-valued field. Bullets cannot be set
// this way.
func (c *Candidate) Set(f Field, text string) {
	switch f {
	case FieldTitle:
		c.Title = text
	case FieldDescription:
		c.Description = text
	case FieldMetaTitle:
		c.MetaTitle = text
	case FieldMetaDescription:
		c.MetaDescription = text
	}
}

// KeywordText is the plain text keywords are searched in: title, bullets
// and description.
func (c Candidate) KeywordText() string {
	parts := make([]string, 0, len(c.Bullets)+2)
	parts = append(parts, markup.PlainText(c.Title))
	for _, b := range c.Bullets {
		parts = append(parts, markup.PlainText(b))
	}
	parts = append(parts, markup.PlainText(c.Description))
	return strings.Join(parts, "\n")
}

// Output converts the candidate and its remaining violations into the
// boundary record.
func (c Candidate) Output(vs []Violation) internal.ProductOutput {
	out := internal.ProductOutput{
		Title:           c.Title,
		Bullets:         append([]string{}, c.Bullets...),
		Description:     c.Description,
		MetaTitle:       c.MetaTitle,
		MetaDescription: c.MetaDescription,
		Violations:      make([]internal.ViolationDescriptor, 0, len(vs)),
	}
	for _, v := range vs {
		out.Violations = append(out.Violations, v.Descriptor())
	}
	return out
}

// FromOutput rebuilds a Candidate from a boundary record, e.g. one read back
// from a CSV file.
func FromOutput(o internal.ProductOutput) Candidate {
	return Candidate{
		Title:           o.Title,
		Bullets:         append([]string(nil), o.Bullets...),
		Description:     o.Description,
		MetaTitle:       o.MetaTitle,
		MetaDescription: o.MetaDescription,
	}
}
