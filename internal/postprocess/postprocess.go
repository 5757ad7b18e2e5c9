// Package postprocess repairs rule violations deterministically, without
// another generator call.
//
// Each violation kind has one repair strategy. A repair only touches the
// field a violation names, and a fix that would break a required term (the
// brand, a keyword) is skipped so the violation stays in the list instead of
// corrupting the field.
package postprocess

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valpere/listingfix/internal/chunker"
	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/markup"
	"github.com/valpere/listingfix/internal/placeholder"
	"github.com/valpere/listingfix/internal/rules"
	"github.com/valpere/listingfix/internal/validator"
)

// Repairer applies deterministic fixes for a fixed catalog. It holds no
// mutable state and is safe for concurrent use.
type Repairer struct {
	catalog rules.Catalog
	matcher *rules.Matcher
}

// New creates a Repairer for c. The catalog is expected to be valid.
func New(c rules.Catalog) *Repairer {
	return &Repairer{catalog: c, matcher: rules.NewMatcher(c)}
}

// repair is the working state of one Repair call.
type repair struct {
	c   content.Candidate
	ctx content.Context
	// dirty marks fields that had a violation or were changed by a fix.
	dirty map[content.Field]bool
	// bulletsRemoved is set when striking a claim emptied a bullet.
	bulletsRemoved bool
}

// Repair returns a new Candidate with the given violations fixed where a
// deterministic fix exists. c itself is not modified, and an empty vs
// returns an identical copy.
//
// Fixes run in a fixed order: claims are struck first, then banned terms
// are replaced, bullets left empty are dropped and the bullet count is fixed, missing brand and keywords are
// inserted, and finally description length and field lengths are brought
// within limits, so text added by an earlier step is still measured.
func (r *Repairer) Repair(c content.Candidate, vs []content.Violation, ctx content.Context) content.Candidate {
	out := c.Clone()
	if len(vs) == 0 {
		return out
	}

	p := &repair{c: out, ctx: ctx, dirty: make(map[content.Field]bool)}
	byKind := make(map[content.Kind][]content.Violation)
	for _, v := range vs {
		p.dirty[v.Field] = true
		byKind[v.Kind] = append(byKind[v.Kind], v)
	}

	r.strikeClaims(p, byKind[content.KindMedicalClaim])
	r.replaceBanned(p, byKind[content.KindBannedTerm])
	r.dropEmptyBullets(p)
	if len(byKind[content.KindBulletCount]) > 0 || p.bulletsRemoved {
		p.c.Bullets = r.fitBullets(p.c.Bullets, ctx)
	}
	r.insertMissing(p)
	if p.dirty[content.FieldDescription] {
		p.c.Description = r.fitDescription(p.c, ctx)
	}
	r.truncate(p)

	return p.c
}

// --- medical claims ---

func (r *Repairer) strikeClaims(p *repair, vs []content.Violation) {
	for _, v := range vs {
		switch v.Field {
		case content.FieldBullets:
			i := v.Item - 1
			if i < 0 || i >= len(p.c.Bullets) {
				continue
			}
			if struck, ok := r.strike(p.c.Bullets[i]); ok {
				p.c.Bullets[i] = struck
			}
		case content.FieldTitle:
			struck, ok := r.strike(p.c.Title)
			if !ok || struck == "" || r.losesBrand(p.ctx, p.c.Title, struck) {
				continue
			}
			p.c.Title = struck
		case content.FieldDescription:
			if struck, ok := r.strike(p.c.Description); ok {
				p.c.Description = struck
			}
		default:
			if struck, ok := r.strike(p.c.Get(v.Field)); ok && struck != "" {
				p.c.Set(v.Field, struck)
			}
		}
	}
}

// dropEmptyBullets removes bullets a struck claim left blank. It runs after
// every fix addressed by bullet number.
func (r *Repairer) dropEmptyBullets(p *repair) {
	kept := p.c.Bullets[:0]
	for _, b := range p.c.Bullets {
		if strings.TrimSpace(b) == "" {
			p.bulletsRemoved = true
			continue
		}
		kept = append(kept, b)
	}
	p.c.Bullets = kept
}

// strike removes every sentence containing a claim verb. Text made of a
// single claim sentence falls back to removing clauses. ok is false when
// text has no claim.
func (r *Repairer) strike(text string) (string, bool) {
	if !r.matcher.HasClaim(text) {
		return text, false
	}
	if kept := r.dropClaims(chunker.Sentences(text)); kept != "" {
		return kept, true
	}
	return r.dropClaims(chunker.Clauses(text)), true
}

func (r *Repairer) dropClaims(segments []string) string {
	var kept []string
	for _, s := range segments {
		if !r.matcher.HasClaim(s) {
			kept = append(kept, s)
		}
	}
	return chunker.Join(kept)
}

// --- banned terms ---

func (r *Repairer) replaceBanned(p *repair, vs []content.Violation) {
	for _, v := range vs {
		if v.Field == content.FieldBullets {
			i := v.Item - 1
			if i >= 0 && i < len(p.c.Bullets) {
				p.c.Bullets[i] = r.substitute(p.c.Bullets[i], v.Term, p.ctx)
			}
			continue
		}
		p.c.Set(v.Field, r.substitute(p.c.Get(v.Field), v.Term, p.ctx))
	}
}

// substitute replaces every occurrence of term in text with its first usable
// synonym. Brand and keyword spans are protected, so a banned word inside
// the brand name is left alone.
func (r *Repairer) substitute(text, term string, ctx content.Context) string {
	re := r.matcher.BannedPattern(term)
	if re == nil {
		return text
	}

	protected, markers := placeholder.Protect(text, ctx.ProtectedTerms()...)
	if !re.MatchString(protected) {
		return text
	}
	syn := r.synonym(term, text)
	if syn == "" {
		return text
	}

	replaced := re.ReplaceAllStringFunc(protected, func(match string) string {
		return matchCase(match, syn)
	})
	// A term that matches inside a marker would corrupt the protected span.
	if missing := placeholder.Validate(replaced, markers); len(missing) > 0 {
		return text
	}
	return placeholder.Restore(replaced, markers)
}

// synonym picks the first registered synonym that is itself allowed and not
// already in text.
func (r *Repairer) synonym(term, text string) string {
	plain := markup.PlainText(text)
	for _, s := range r.catalog.Synonyms(term) {
		if r.matcher.HasBanned(s) || r.matcher.HasClaim(s) {
			continue
		}
		if validator.ContainsFold(plain, s) {
			continue
		}
		return s
	}
	return ""
}

// matchCase carries the capitalization of match over to repl. All-caps words
// longer than an acronym stay all-caps; anything starting upper-case gets a
// capital first letter.
func matchCase(match, repl string) string {
	if utf8.RuneCountInString(match) > 3 && match == strings.ToUpper(match) && match != strings.ToLower(match) {
		return strings.ToUpper(repl)
	}
	first, _ := utf8.DecodeRuneInString(match)
	if !unicode.IsUpper(first) {
		return repl
	}
	rr, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(rr)) + repl[size:]
}

// --- bullets ---

func (r *Repairer) fitBullets(bullets []string, ctx content.Context) []string {
	if n := r.catalog.BulletCount; len(bullets) > n {
		return append([]string(nil), bullets[:n]...)
	}
	return r.PadBullets(bullets, ctx)
}

// --- brand and keywords ---

// insertMissing adds the brand to a changed title or description that lacks
// it, and appends a clause naming any keyword missing from title, bullets
// and description.
func (r *Repairer) insertMissing(p *repair) {
	brand := p.ctx.Brand

	if brand != "" && p.dirty[content.FieldTitle] && !validator.ContainsFold(markup.PlainText(p.c.Title), brand) {
		title := strings.TrimSpace(p.c.Title)
		if title == "" {
			title = strings.TrimSpace(p.ctx.ProductType)
		}
		p.c.Title = strings.TrimSpace(brand + " " + title)
	}

	if brand != "" && p.dirty[content.FieldDescription] && !validator.ContainsFold(markup.PlainText(p.c.Description), brand) {
		p.c.Description = appendSentence(p.c.Description, "Made by "+brand+".")
	}

	if !p.dirty[content.FieldTitle] && !p.dirty[content.FieldBullets] && !p.dirty[content.FieldDescription] {
		return
	}
	all := p.c.KeywordText()
	var missing []string
	for _, kw := range p.ctx.Keywords {
		if !validator.ContainsFold(all, kw.Value) {
			missing = append(missing, kw.Label())
		}
	}
	if len(missing) > 0 {
		p.c.Description = appendSentence(p.c.Description, "Key features include "+strings.Join(missing, ", ")+".")
		p.dirty[content.FieldDescription] = true
	}
}

func (r *Repairer) losesBrand(ctx content.Context, before, after string) bool {
	return ctx.Brand != "" &&
		validator.ContainsFold(markup.PlainText(before), ctx.Brand) &&
		!validator.ContainsFold(markup.PlainText(after), ctx.Brand)
}

// losesKeyword reports whether a keyword present in before is absent from after.
func losesKeyword(ctx content.Context, before, after content.Candidate) bool {
	was, is := before.KeywordText(), after.KeywordText()
	for _, kw := range ctx.Keywords {
		if validator.ContainsFold(was, kw.Value) && !validator.ContainsFold(is, kw.Value) {
			return true
		}
	}
	return false
}

// --- description length ---

func (r *Repairer) fitDescription(c content.Candidate, ctx content.Context) string {
	n := validator.Words(c.Description)
	switch {
	case n < r.catalog.DescriptionMinWords:
		return r.ExtendDescription(c.Description, ctx)
	case n > r.catalog.DescriptionMaxWords:
		return r.shortenDescription(c, ctx)
	}
	return c.Description
}

// shortenDescription drops whole sentences from the end until the word count
// is within range. A sentence is kept if dropping it would fall below the
// minimum or remove the only mention of the brand or a keyword.
func (r *Repairer) shortenDescription(c content.Candidate, ctx content.Context) string {
	segments := chunker.Sentences(c.Description)
	words := validator.Words(c.Description)
	dropped := false

	for i := len(segments) - 1; i >= 0 && words > r.catalog.DescriptionMaxWords; i-- {
		w := validator.Words(segments[i])
		if words-w < r.catalog.DescriptionMinWords {
			continue
		}

		rest := make([]string, 0, len(segments)-1)
		rest = append(rest, segments[:i]...)
		rest = append(rest, segments[i+1:]...)

		next := c.Clone()
		next.Description = strings.Join(rest, "")
		if r.losesBrand(ctx, c.Description, next.Description) || losesKeyword(ctx, c, next) {
			continue
		}

		segments = rest
		words -= w
		dropped = true
	}

	if !dropped {
		return c.Description
	}
	return chunker.Join(segments)
}

// --- field lengths ---

func (r *Repairer) truncate(p *repair) {
	if p.dirty[content.FieldTitle] {
		if cut, ok := r.cut(p.c.Title, r.catalog.TitleMaxChars); ok {
			next := p.c.Clone()
			next.Title = cut
			if !r.losesBrand(p.ctx, p.c.Title, cut) && !losesKeyword(p.ctx, p.c, next) {
				p.c = next
			}
		}
	}

	if p.dirty[content.FieldBullets] {
		for i, b := range p.c.Bullets {
			if cut, ok := r.cut(b, r.catalog.BulletMaxChars); ok {
				next := p.c.Clone()
				next.Bullets[i] = cut
				if !losesKeyword(p.ctx, p.c, next) {
					p.c = next
				}
			}
		}
	}

	if p.dirty[content.FieldMetaTitle] {
		if cut, ok := r.cut(p.c.MetaTitle, r.catalog.MetaTitleMaxChars); ok {
			p.c.MetaTitle = cut
		}
	}
	if p.dirty[content.FieldMetaDescription] {
		if cut, ok := r.cut(p.c.MetaDescription, r.catalog.MetaDescriptionMaxChars); ok {
			p.c.MetaDescription = cut
		}
	}
}

// cut shortens text to max characters on a word boundary. ok is false when
// text already fits, has no boundary to cut at, or would end up shorter than
// the catalog's minimum.
func (r *Repairer) cut(text string, max int) (string, bool) {
	if validator.Chars(text) <= max {
		return text, false
	}
	cut, ok := chunker.Truncate(markup.PlainText(text), max)
	if !ok || utf8.RuneCountInString(cut) < r.catalog.MinTruncateChars {
		return text, false
	}
	return cut, true
}

func appendSentence(text, sentence string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return sentence
	}
	if last, _ := utf8.DecodeLastRuneInString(text); !strings.ContainsRune(".!?", last) {
		text += "."
	}
	return text + " " + sentence
}
