package internal

import (
	"reflect"
	"testing"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"json object", `{"Color": "Black", "Ports": 4}`, map[string]string{"Color": "Black", "Ports": "4"}},
		{"json list value", `{"Colors": ["Black", "Red"]}`, map[string]string{"Colors": "Black, Red"}},
		{"json scalar", `"Black"`, map[string]string{"value": "Black"}},
		{"pairs", "Color: Black, Size=XL", map[string]string{"Color": "Black", "Size": "XL"}},
		{"bare words", "wireless, foldable", map[string]string{"keyword_1": "wireless", "keyword_2": "foldable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAttributes(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAttributes(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseBulletList(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"json", `["One", " Two ", ""]`, []string{"One", "Two"}},
		{"empty json", `[]`, nil},
		{"newlines", "- One\n* Two\n• Three", []string{"One", "Two", "Three"}},
		{"pipes and semicolons", "One | Two; Three", []string{"One", "Two", "Three"}},
		{"html", "<ul><li>One</li><li>Two</li></ul>", []string{"One", "Two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBulletList(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseBulletList(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestProductInputFromRecord(t *testing.T) {
	header := []string{"Brand", "product_type", "attributes", "current_bullets"}
	row := []string{" TechBrand ", "Headphones", `{"Color":"Black"}`, "One;Two"}

	in := ProductInputFromRecord(header, row)
	if in.Brand != "TechBrand" || in.ProductType != "Headphones" {
		t.Errorf("unexpected brand/type: %+v", in)
	}
	if in.Attributes["Color"] != "Black" {
		t.Errorf("unexpected attributes: %v", in.Attributes)
	}
	if in.CurrentDescription != "" {
		t.Errorf("missing column should be empty, got %q", in.CurrentDescription)
	}
	if !reflect.DeepEqual(in.CurrentBullets, []string{"One", "Two"}) {
		t.Errorf("unexpected bullets: %q", in.CurrentBullets)
	}
}

func TestOutputRecord(t *testing.T) {
	out := ProductOutput{
		Title:   "TechBrand Headphones",
		Bullets: []string{"A & B"},
		Violations: []ViolationDescriptor{
			{Kind: "title_length", Field: "title", Detail: "has 160 characters, max 150"},
			{Kind: "keyword_missing", Field: "description", Detail: `missing keyword "Black"`},
		},
	}

	rec := out.OutputRecord()
	if len(rec) != len(OutputColumns) {
		t.Fatalf("expected %d columns, got %d", len(OutputColumns), len(rec))
	}
	if rec[1] != "<li>A &amp; B</li>" {
		t.Errorf("unexpected bullets column %q", rec[1])
	}
	want := `title: has 160 characters, max 150; description: missing keyword "Black"`
	if rec[5] != want {
		t.Errorf("violations column = %q, want %q", rec[5], want)
	}
}

func TestProductOutputFromRecord(t *testing.T) {
	header := append([]string{"brand"}, OutputColumns...)
	row := []string{"TechBrand", "Title", "<li>A &amp; B; C</li><li>D</li>", "Desc", "Meta", "Meta desc", "ignored"}

	out, ok := ProductOutputFromRecord(header, row)
	if !ok {
		t.Fatal("expected refined columns to be found")
	}
	want := ProductOutput{
		Title:           "Title",
		Bullets:         []string{"A & B; C", "D"},
		Description:     "Desc",
		MetaTitle:       "Meta",
		MetaDescription: "Meta desc",
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("ProductOutputFromRecord() = %+v, want %+v", out, want)
	}

	if _, ok := ProductOutputFromRecord([]string{"brand"}, []string{"x"}); ok {
		t.Error("expected missing refined columns to be reported")
	}
}

func TestParseBulletsHTML_RoundTrip(t *testing.T) {
	bullets := []string{"Fits 1 | 2", "Tom & Jerry <3"}
	out := ProductOutput{Bullets: bullets}
	if got := ParseBulletsHTML(out.BulletsHTML()); !reflect.DeepEqual(got, bullets) {
		t.Errorf("ParseBulletsHTML() = %q, want %q", got, bullets)
	}
}
