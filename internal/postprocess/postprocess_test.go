package postprocess

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/rules"
	"github.com/valpere/listingfix/internal/validator"
)

var testBullets = []string{
	"Soft cushions for long listening sessions",
	"Foldable frame for easy storage",
	"Up to 30 hours of battery life",
	"Clear calls with a built-in microphone",
	"Quick pairing with phones and laptops",
	"Adjustable headband for a secure fit",
	"Travel pouch included",
	"Balanced sound at any volume",
}

func testContext() content.Context {
	return content.Context{
		Brand:       "TechBrand",
		ProductType: "Headphones",
		Keywords:    []content.Keyword{{Name: "Color", Value: "Black"}},
	}
}

func compliant() content.Candidate {
	return content.Candidate{
		Title:           "TechBrand Wireless Headphones in Black",
		Bullets:         append([]string(nil), testBullets...),
		Description:     "TechBrand headphones in Black. " + strings.Repeat("Comfortable sound for daily listening. ", 25),
		MetaTitle:       "TechBrand Wireless Headphones",
		MetaDescription: "Wireless headphones from TechBrand in Black.",
	}
}

type fixture struct {
	v *validator.Validator
	r *Repairer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := rules.Default()
	v, err := validator.New(c)
	if err != nil {
		t.Fatalf("validator.New: %v", err)
	}
	return fixture{v: v, r: New(c)}
}

// repair validates c, repairs it and returns the result with its remaining violations.
func (f fixture) repair(c content.Candidate, ctx content.Context) (content.Candidate, []content.Violation) {
	fixed := f.r.Repair(c, f.v.Validate(c, ctx), ctx)
	return fixed, f.v.Validate(fixed, ctx)
}

func TestRepair_NoViolationsUnchanged(t *testing.T) {
	f := newFixture(t)
	c := compliant()

	got := f.r.Repair(c, nil, testContext())
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("candidate changed (-want +got):\n%s", diff)
	}
	got.Bullets[0] = "changed"
	if c.Bullets[0] == "changed" {
		t.Error("Repair returned a candidate sharing bullets with its input")
	}
}

func TestRepair_DoesNotModifyInput(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Bullets[0] = "Premium cushions"
	before := c.Clone()

	f.repair(c, testContext())
	if diff := cmp.Diff(before, c); diff != "" {
		t.Errorf("input candidate was modified (-want +got):\n%s", diff)
	}
}

func TestRepair_BannedTermAndShortDescription(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Description = "TechBrand premium headphones in Black. " +
		strings.Repeat("Comfortable sound for daily listening. ", 16) +
		"Enjoy it every day."

	if n := validator.Words(c.Description); n != 90 {
		t.Fatalf("fixture has %d words, want 90", n)
	}

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if !strings.HasPrefix(fixed.Description, "TechBrand high-quality headphones in Black.") {
		t.Errorf("expected premium replaced in place, got %q", fixed.Description[:60])
	}
	if diff := cmp.Diff(c.Title, fixed.Title); diff != "" {
		t.Errorf("title should be untouched (-want +got):\n%s", diff)
	}
}

func TestRepair_TooManyBullets(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Bullets = append(c.Bullets, "Extra bullet one", "Extra bullet two")

	vs := f.v.Validate(c, testContext())
	if len(vs) != 1 || vs[0].Kind != content.KindBulletCount {
		t.Fatalf("expected a single bullet count violation, got %v", vs)
	}

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if diff := cmp.Diff(testBullets, fixed.Bullets); diff != "" {
		t.Errorf("expected the first eight bullets kept (-want +got):\n%s", diff)
	}
}

func TestRepair_TooFewBulletsPadsWithKeywordsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := testContext()
	ctx.Keywords = append(ctx.Keywords, content.Keyword{Name: "Connector", Value: "USB-C"})
	c := compliant()
	c.Bullets = c.Bullets[:5]

	fixed, remaining := f.repair(c, ctx)
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	want := append(append([]string(nil), testBullets[:5]...), "Color: Black", "Connector: USB-C", "Designed for everyday use")
	if diff := cmp.Diff(want, fixed.Bullets); diff != "" {
		t.Errorf("bullets mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_PadBulletsSkipsDuplicates(t *testing.T) {
	f := newFixture(t)
	bullets := []string{"designed for everyday use", "Color: Black"}

	got := f.r.PadBullets(bullets, testContext())
	if len(got) != 8 {
		t.Fatalf("expected 8 bullets, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, b := range got {
		key := strings.ToLower(b)
		if seen[key] {
			t.Errorf("duplicate bullet %q in %q", b, got)
		}
		seen[key] = true
	}
}

func TestRepair_BannedTermKeepsCapitalization(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Title = "Premium TechBrand Headphones in Black"
	c.MetaTitle = "PREMIUM HEADPHONES"

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if fixed.Title != "High-quality TechBrand Headphones in Black" {
		t.Errorf("unexpected title %q", fixed.Title)
	}
	if fixed.MetaTitle != "HIGH-QUALITY HEADPHONES" {
		t.Errorf("unexpected meta title %q", fixed.MetaTitle)
	}
}

func TestRepair_BannedTermInsideBrandIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := testContext()
	ctx.Brand = "Perfect Audio"
	c := compliant()
	c.Title = "Perfect Audio Headphones in Black"

	vs := []content.Violation{{Kind: content.KindBannedTerm, Field: content.FieldTitle, Term: "perfect"}}
	got := f.r.Repair(c, vs, ctx)
	if got.Title != c.Title {
		t.Errorf("brand was rewritten: %q", got.Title)
	}
}

func TestRepair_AllSynonymsPresentLeavesViolation(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Description += "It is high-quality, quality and well-made, truly premium."

	fixed, remaining := f.repair(c, testContext())
	if fixed.Description != c.Description {
		t.Errorf("description should be unchanged, got %q", fixed.Description)
	}
	if len(remaining) != 1 || remaining[0].Kind != content.KindBannedTerm {
		t.Errorf("expected the banned term to remain, got %v", remaining)
	}
}

func TestRepair_StrikesClaimSentence(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Description = "TechBrand headphones in Black. This design cures headaches. " +
		strings.Repeat("Comfortable sound for daily listening. ", 25)

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if strings.Contains(fixed.Description, "cures") {
		t.Errorf("claim sentence still present: %q", fixed.Description)
	}
	if !strings.HasPrefix(fixed.Description, "TechBrand headphones in Black. Comfortable sound") {
		t.Errorf("surrounding sentences should survive, got %q", fixed.Description[:60])
	}
}

func TestRepair_ClaimOnlyBulletIsReplaced(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Bullets[3] = "Cures headaches fast"

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if len(fixed.Bullets) != 8 {
		t.Fatalf("expected 8 bullets, got %d", len(fixed.Bullets))
	}
	if fixed.Bullets[7] != "Color: Black" {
		t.Errorf("expected a keyword filler at the end, got %q", fixed.Bullets)
	}
}

func TestRepair_ClaimOnlyBulletBeforeBannedTerm(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Bullets[1] = "Helps cure headaches"
	c.Bullets[4] = "Premium pairing with phones and laptops"

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if len(fixed.Bullets) != 8 {
		t.Fatalf("expected 8 bullets, got %d", len(fixed.Bullets))
	}

	want := []string{
		"Soft cushions for long listening sessions",
		"Up to 30 hours of battery life",
		"Clear calls with a built-in microphone",
		"High-quality pairing with phones and laptops",
		"Adjustable headband for a secure fit",
		"Travel pouch included",
		"Balanced sound at any volume",
	}
	if diff := cmp.Diff(want, fixed.Bullets[:7]); diff != "" {
		t.Errorf("bullets mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_ClaimClauseInTitle(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Title = "TechBrand Wireless Headphones in Black - Prevents Ear Fatigue"

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if fixed.Title != "TechBrand Wireless Headphones in Black" {
		t.Errorf("unexpected title %q", fixed.Title)
	}
}

func TestRepair_TitleTruncatedOnWordBoundary(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Title = "TechBrand Wireless Headphones in Black with " + strings.Repeat("extra ", 25)

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if n := validator.Chars(fixed.Title); n > 150 {
		t.Errorf("title still %d characters", n)
	}
	if strings.HasSuffix(fixed.Title, " ") || !strings.HasSuffix(fixed.Title, "extra") {
		t.Errorf("title cut mid-word: %q", fixed.Title)
	}
}

func TestRepair_TruncationThatDropsBrandIsUnresolved(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Title = strings.Repeat("Wireless ", 17) + "Headphones by TechBrand"

	fixed, remaining := f.repair(c, testContext())
	if fixed.Title != c.Title {
		t.Errorf("title should be left as is, got %q", fixed.Title)
	}
	if len(remaining) != 1 || remaining[0].Kind != content.KindTitleLength {
		t.Errorf("expected the title length violation to remain, got %v", remaining)
	}
}

func TestRepair_MissingBrandInTitle(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Title = "Wireless Headphones in Black"

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if fixed.Title != "TechBrand Wireless Headphones in Black" {
		t.Errorf("unexpected title %q", fixed.Title)
	}
}

func TestRepair_MissingBrandAndKeywordInDescription(t *testing.T) {
	f := newFixture(t)
	ctx := testContext()
	ctx.Keywords = append(ctx.Keywords, content.Keyword{Name: "Connector", Value: "USB-C"})
	c := compliant()
	c.Description = "Wireless headphones. " + strings.Repeat("Comfortable sound for daily listening. ", 25)

	fixed, remaining := f.repair(c, ctx)
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if !strings.HasSuffix(fixed.Description, "Made by TechBrand. Key features include Connector: USB-C.") {
		t.Errorf("unexpected description ending %q", fixed.Description)
	}
}

func TestRepair_LongDescriptionDropsTrailingSentences(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Description = "TechBrand headphones in Black. " + strings.Repeat("Comfortable sound for daily listening. ", 35)

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if n := validator.Words(fixed.Description); n != 159 {
		t.Errorf("expected 159 words, got %d", n)
	}
}

func TestRepair_LongDescriptionKeepsKeywordSentence(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.Title = "TechBrand Wireless Headphones"
	c.MetaDescription = "Wireless headphones from TechBrand."
	c.Description = "TechBrand headphones. " +
		strings.Repeat("Comfortable sound for daily listening. ", 35) +
		"Available in Black."

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if !strings.HasSuffix(fixed.Description, "Available in Black.") {
		t.Errorf("the only keyword sentence was dropped: %q", fixed.Description)
	}
	if n := validator.Words(fixed.Description); n != 160 {
		t.Errorf("expected 160 words, got %d", n)
	}
}

func TestRepair_MetaDescriptionTruncated(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.MetaDescription = strings.Repeat("Wireless headphones ", 10)

	fixed, remaining := f.repair(c, testContext())
	if len(remaining) != 0 {
		t.Fatalf("expected compliant result, got %v", remaining)
	}
	if !strings.HasSuffix(fixed.MetaDescription, "headphones") && !strings.HasSuffix(fixed.MetaDescription, "Wireless") {
		t.Errorf("meta description cut mid-word: %q", fixed.MetaDescription)
	}
}

func TestRepair_TruncationBelowMinimumIsUnresolved(t *testing.T) {
	f := newFixture(t)
	c := compliant()
	c.MetaTitle = "A " + strings.Repeat("x", 80)

	fixed, remaining := f.repair(c, testContext())
	if fixed.MetaTitle != c.MetaTitle {
		t.Errorf("meta title should be left as is, got %q", fixed.MetaTitle)
	}
	if len(remaining) != 1 || remaining[0].Kind != content.KindMetaTitleLength {
		t.Errorf("expected the meta title violation to remain, got %v", remaining)
	}
}

func TestExtendDescription_FromEmpty(t *testing.T) {
	f := newFixture(t)
	got := f.r.ExtendDescription("", testContext())

	n := validator.Words(got)
	if n < 120 || n > 160 {
		t.Errorf("extended description has %d words, want 120-160", n)
	}
	if !strings.HasPrefix(got, "This product features Black") {
		t.Errorf("expected keyword-anchored sentence first, got %q", got[:40])
	}
}

func TestMatchCase(t *testing.T) {
	tests := []struct{ match, repl, want string }{
		{"premium", "high-quality", "high-quality"},
		{"Premium", "high-quality", "High-quality"},
		{"PREMIUM", "high-quality", "HIGH-QUALITY"},
		{"UV", "sunlight", "Sunlight"},
	}
	for _, tt := range tests {
		if got := matchCase(tt.match, tt.repl); got != tt.want {
			t.Errorf("matchCase(%q, %q) = %q, want %q", tt.match, tt.repl, got, tt.want)
		}
	}
}

func TestSubstitute_TermMatchingMarkerLeavesTextAlone(t *testing.T) {
	c := rules.Default().WithTerms([]rules.BannedTerm{{Term: "0", Synonyms: []string{"zero"}}})
	r := New(c)
	ctx := testContext()

	text := "TechBrand 0 noise"
	got := r.substitute(text, "0", ctx)
	if got != text {
		t.Errorf("substitute() = %q, want %q unchanged", got, text)
	}
	if strings.ContainsAny(got, "\uE000\uE001") {
		t.Errorf("marker leaked into output: %q", got)
	}
}
