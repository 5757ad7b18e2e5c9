// Package validator turns a candidate record into the list of rules it breaks.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/detector"
	"github.com/valpere/listingfix/internal/markup"
	"github.com/valpere/listingfix/internal/rules"
)

// minLanguageLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minLanguageLength = 20

// Validator checks candidates against a rule catalog. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	catalog rules.Catalog
	matcher *rules.Matcher
	det     *detector.Detector
	lang    string
}

// New compiles a Validator for c. The language detector is only built when
// the catalog asks for a language; it is expensive, so reuse the instance.
func New(c rules.Catalog) (*Validator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	v := &Validator{catalog: c, matcher: rules.NewMatcher(c)}
	if c.Language != "" {
		det, err := detector.NewFor(c.Language)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", rules.ErrInvalidCatalog, err)
		}
		lang, _ := detector.ParseCode(c.Language)
		v.det = det
		v.lang = strings.ToLower(lang.IsoCode639_1().String())
	}
	return v, nil
}

// Catalog returns the rules the validator enforces.
func (v *Validator) Catalog() rules.Catalog {
	return v.catalog
}

// Matcher returns the compiled term matcher.
func (v *Validator) Matcher() *rules.Matcher {
	return v.matcher
}

// Validate returns every violation in c, in field declaration order and rule
// order within a field. An empty result means c is compliant. The same
// inputs always produce the same output.
func (v *Validator) Validate(c content.Candidate, ctx content.Context) []content.Violation {
	var out []content.Violation
	out = append(out, v.title(c, ctx)...)
	out = append(out, v.bullets(c)...)
	out = append(out, v.description(c, ctx)...)
	out = append(out, v.limited(content.FieldMetaTitle, content.KindMetaTitleLength, c.MetaTitle, v.catalog.MetaTitleMaxChars)...)
	out = append(out, v.limited(content.FieldMetaDescription, content.KindMetaDescriptionLength, c.MetaDescription, v.catalog.MetaDescriptionMaxChars)...)
	return out
}

// Chars counts runes in the plain-text form of s.
func Chars(s string) int {
	return utf8.RuneCountInString(markup.PlainText(s))
}

// Words counts whitespace-separated words in the plain-text form of s.
func Words(s string) int {
	return len(strings.Fields(markup.PlainText(s)))
}

// ContainsFold reports whether text contains term, ignoring case.
func ContainsFold(text, term string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

func (v *Validator) title(c content.Candidate, ctx content.Context) []content.Violation {
	var out []content.Violation
	f := content.FieldTitle

	if n := Chars(c.Title); n > v.catalog.TitleMaxChars {
		out = append(out, content.Violation{Kind: content.KindTitleLength, Field: f, Measured: n, Max: v.catalog.TitleMaxChars})
	}
	if ctx.Brand != "" && !ContainsFold(markup.PlainText(c.Title), ctx.Brand) {
		out = append(out, content.Violation{Kind: content.KindBrandMissing, Field: f, Term: ctx.Brand})
	}
	return append(out, v.terms(f, 0, c.Title)...)
}

func (v *Validator) bullets(c content.Candidate) []content.Violation {
	var out []content.Violation
	f := content.FieldBullets
	n := v.catalog.BulletCount

	if len(c.Bullets) != n {
		out = append(out, content.Violation{Kind: content.KindBulletCount, Field: f, Measured: len(c.Bullets), Min: n, Max: n})
	}
	for i, b := range c.Bullets {
		if chars := Chars(b); chars > v.catalog.BulletMaxChars {
			out = append(out, content.Violation{Kind: content.KindBulletLength, Field: f, Item: i + 1, Measured: chars, Max: v.catalog.BulletMaxChars})
		}
		out = append(out, v.terms(f, i+1, b)...)
	}
	return out
}

func (v *Validator) description(c content.Candidate, ctx content.Context) []content.Violation {
	var out []content.Violation
	f := content.FieldDescription
	plain := markup.PlainText(c.Description)

	if n := Words(c.Description); n < v.catalog.DescriptionMinWords || n > v.catalog.DescriptionMaxWords {
		out = append(out, content.Violation{
			Kind: content.KindDescriptionWordCount, Field: f,
			Measured: n, Min: v.catalog.DescriptionMinWords, Max: v.catalog.DescriptionMaxWords,
		})
	}
	if ctx.Brand != "" && !ContainsFold(plain, ctx.Brand) {
		out = append(out, content.Violation{Kind: content.KindBrandMissing, Field: f, Term: ctx.Brand})
	}

	// Keywords may appear anywhere in title, bullets or description; a
	// missing one is reported against the description, where it is added.
	all := c.KeywordText()
	for _, kw := range ctx.Keywords {
		if !ContainsFold(all, kw.Value) {
			out = append(out, content.Violation{Kind: content.KindKeywordMissing, Field: f, Term: kw.Value})
		}
	}

	out = append(out, v.terms(f, 0, c.Description)...)

	if vl, ok := v.language(plain); ok {
		out = append(out, vl)
	}
	return out
}

func (v *Validator) limited(f content.Field, kind content.Kind, text string, max int) []content.Violation {
	var out []content.Violation
	if n := Chars(text); n > max {
		out = append(out, content.Violation{Kind: kind, Field: f, Measured: n, Max: max})
	}
	return append(out, v.terms(f, 0, text)...)
}

// terms reports banned terms, then claim verbs, found in one text.
func (v *Validator) terms(f content.Field, item int, text string) []content.Violation {
	plain := markup.PlainText(text)
	var out []content.Violation
	for _, term := range v.matcher.BannedIn(plain) {
		out = append(out, content.Violation{Kind: content.KindBannedTerm, Field: f, Item: item, Term: term})
	}
	for _, verb := range v.matcher.ClaimsIn(plain) {
		out = append(out, content.Violation{Kind: content.KindMedicalClaim, Field: f, Item: item, Term: verb})
	}
	return out
}

func (v *Validator) language(plain string) (content.Violation, bool) {
	if v.det == nil || utf8.RuneCountInString(plain) < minLanguageLength {
		return content.Violation{}, false
	}

	detected, ok := v.det.DetectISO(plain)
	if !ok {
		// Ambiguous language, cannot validate.
		return content.Violation{}, false
	}
	if strings.EqualFold(detected, v.lang) {
		return content.Violation{}, false
	}
	return content.Violation{
		Kind:  content.KindLanguage,
		Field: content.FieldDescription,
		Term:  v.lang,
		Found: strings.ToLower(detected),
	}, true
}
