package postprocess

import (
	"fmt"
	"strings"

	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/validator"
)

// genericBullets are neutral feature lines used when keywords run out.
var genericBullets = []string{
	"Designed for everyday use",
	"Built from durable materials",
	"Easy to clean and maintain",
	"Simple to set up and use",
	"Lightweight and easy to carry",
	"Compact design that saves space",
	"Suitable for home, office or travel",
	"Clean, modern look that fits any setting",
	"Thoughtful details for daily routines",
	"Checked for quality before shipping",
	"Clear care instructions included",
	"Makes a practical gift",
}

// genericSentences close out a description that is too short. Each one is
// self-contained so any subset reads naturally.
var genericSentences = []string{
	"It is designed to be simple to use from the very first day.",
	"Every detail is chosen to make daily routines a little easier.",
	"The materials are selected to hold up well with regular use.",
	"Care is straightforward, so it stays in good shape over time.",
	"It fits comfortably into a busy schedule at home or on the go.",
	"Clear instructions help you get started without any guesswork.",
	"The design balances practical function with a clean and modern look.",
	"It makes a thoughtful choice for yourself or as a gift for someone else.",
	"Each unit is checked carefully before it leaves the warehouse.",
	"Customer support is available if you have any questions after purchase.",
	"Its compact shape is easy to store when it is not in use.",
	"A consistent build means it performs the same way day after day.",
	"Packaging is kept simple and protective for safe delivery.",
	"It pairs well with the other essentials you already own.",
}

// allowed reports whether text is free of banned terms and claim verbs.
func (r *Repairer) allowed(text string) bool {
	return !r.matcher.HasBanned(text) && !r.matcher.HasClaim(text)
}

// PadBullets appends filler bullets until there are exactly as many as the
// catalog requires. Keywords not yet mentioned in any bullet come first as
// "Name: Value" lines, then generic feature lines. Fillers never repeat an
// existing bullet and always satisfy the bullet rules themselves.
func (r *Repairer) PadBullets(bullets []string, ctx content.Context) []string {
	n := r.catalog.BulletCount
	out := append([]string(nil), bullets...)
	if len(out) >= n {
		return out[:n]
	}

	existing := strings.Join(out, "\n")
	var fillers []string
	for _, kw := range ctx.Keywords {
		if validator.ContainsFold(existing, kw.Value) {
			continue
		}
		label := kw.Label()
		if validator.Chars(label) > r.catalog.BulletMaxChars {
			label = kw.Value
		}
		fillers = append(fillers, label)
	}
	fillers = append(fillers, genericBullets...)
	if ctx.Brand != "" {
		fillers = append(fillers, fmt.Sprintf("Backed by %s customer support", ctx.Brand))
	}

	for _, f := range fillers {
		if len(out) >= n {
			break
		}
		if validator.Chars(f) > r.catalog.BulletMaxChars || !r.allowed(f) || containsItem(out, f) {
			continue
		}
		out = append(out, f)
	}
	for i := 1; len(out) < n; i++ {
		f := fmt.Sprintf("Additional feature %d", i)
		if !containsItem(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func containsItem(items []string, s string) bool {
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// ExtendDescription appends closing sentences until desc reaches the
// catalog's minimum word count. Sentences anchored on keywords the text does
// not mention yet come first, then generic ones. A sentence that would push
// the text past the maximum is skipped, so the result can still fall short
// when nothing fits.
func (r *Repairer) ExtendDescription(desc string, ctx content.Context) string {
	text := strings.TrimSpace(desc)
	words := validator.Words(text)

	for _, s := range r.closingSentences(ctx, text) {
		if words >= r.catalog.DescriptionMinWords {
			break
		}
		w := validator.Words(s)
		if words+w > r.catalog.DescriptionMaxWords || validator.ContainsFold(text, s) {
			continue
		}
		text = appendSentence(text, s)
		words += w
	}
	return text
}

func (r *Repairer) closingSentences(ctx content.Context, text string) []string {
	var out []string
	for _, kw := range ctx.Keywords {
		if validator.ContainsFold(text, kw.Value) {
			continue
		}
		out = append(out, fmt.Sprintf("This product features %s for reliable everyday use.", kw.Value))
	}
	out = append(out, genericSentences...)

	allowed := out[:0]
	for _, s := range out {
		if r.allowed(s) {
			allowed = append(allowed, s)
		}
	}
	return allowed
}
