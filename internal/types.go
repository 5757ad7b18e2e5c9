package internal

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/valpere/listingfix/internal/markup"
)

// ProductInput is the record a caller hands to a refinement.
type ProductInput struct {
	Brand              string            `json:"brand"`
	ProductType        string            `json:"product_type"`
	Attributes         map[string]string `json:"attributes"`
	CurrentDescription string            `json:"current_description"`
	CurrentBullets     []string          `json:"current_bullets"`
}

// ViolationDescriptor is the serializable form of a rule violation.
type ViolationDescriptor struct {
	Kind   string `json:"kind"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (d ViolationDescriptor) String() string {
	return fmt.Sprintf("%s: %s", d.Field, d.Detail)
}

// ProductOutput is the refined record plus whatever violations could not be cleared.
type ProductOutput struct {
	Title           string                `json:"title"`
	Bullets         []string              `json:"bullets"`
	Description     string                `json:"description"`
	MetaTitle       string                `json:"meta_title"`
	MetaDescription string                `json:"meta_description"`
	Violations      []ViolationDescriptor `json:"violations"`
}

// Input CSV columns.
const (
	ColBrand              = "brand"
	ColProductType        = "product_type"
	ColAttributes         = "attributes"
	ColCurrentDescription = "current_description"
	ColCurrentBullets     = "current_bullets"
)

// Output CSV columns appended after the input columns.
var OutputColumns = []string{
	"refined_title",
	"refined_bullets",
	"refined_description",
	"meta_title",
	"meta_description",
	"violations",
}

// ProductInputFromRecord maps a CSV row onto a ProductInput using the header
// row to locate columns. Missing columns are treated as empty.
func ProductInputFromRecord(header, row []string) ProductInput {
	get := func(name string) string {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	return ProductInput{
		Brand:              get(ColBrand),
		ProductType:        get(ColProductType),
		Attributes:         ParseAttributes(get(ColAttributes)),
		CurrentDescription: get(ColCurrentDescription),
		CurrentBullets:     ParseBulletList(get(ColCurrentBullets)),
	}
}

// ProductOutputFromRecord reads the refined columns of an output row back.
// Violations are not parsed; callers re-validate instead.
func ProductOutputFromRecord(header, row []string) (ProductOutput, bool) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(name string) string {
		if i, ok := idx[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	if _, ok := idx[OutputColumns[0]]; !ok {
		return ProductOutput{}, false
	}

	return ProductOutput{
		Title:           get(OutputColumns[0]),
		Bullets:         ParseBulletsHTML(get(OutputColumns[1])),
		Description:     get(OutputColumns[2]),
		MetaTitle:       get(OutputColumns[3]),
		MetaDescription: get(OutputColumns[4]),
	}, true
}

// ParseBulletsHTML splits a run of <li> items written by BulletsHTML. Unlike
// ParseBulletList it keeps semicolons and pipes inside an item.
func ParseBulletsHTML(text string) []string {
	if !strings.Contains(strings.ToLower(text), "<li") {
		return ParseBulletList(text)
	}
	var bullets []string
	for _, item := range strings.Split(text, "</li>") {
		item = strings.TrimSpace(listItemTagRe.ReplaceAllString(item, ""))
		if item != "" {
			bullets = append(bullets, html.UnescapeString(item))
		}
	}
	return bullets
}

// BulletsHTML renders the bullets as a run of <li> items.
func (o ProductOutput) BulletsHTML() string {
	return markup.BulletsHTML(o.Bullets)
}

// OutputRecord renders the refined columns in OutputColumns order.
func (o ProductOutput) OutputRecord() []string {
	violations := make([]string, 0, len(o.Violations))
	for _, v := range o.Violations {
		violations = append(violations, v.String())
	}
	return []string{
		o.Title,
		o.BulletsHTML(),
		o.Description,
		o.MetaTitle,
		o.MetaDescription,
		strings.Join(violations, "; "),
	}
}

// ParseAttributes decodes the attributes column. A JSON object becomes the
// keyword map and any other JSON value is stored under "value". Text that is
// not JSON is read as a comma-separated list of "name: value" pairs; a part
// without a name is keyed by its position.
func ParseAttributes(text string) map[string]string {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]string{}
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return parsePairs(text)
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return map[string]string{"value": stringify(parsed)}
	}

	attrs := make(map[string]string, len(obj))
	for k, v := range obj {
		attrs[k] = stringify(v)
	}
	return attrs
}

func parsePairs(text string) map[string]string {
	attrs := make(map[string]string)
	for i, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			name, value, ok = strings.Cut(part, "=")
		}
		if !ok || strings.TrimSpace(value) == "" {
			attrs[fmt.Sprintf("keyword_%d", i+1)] = part
			continue
		}
		attrs[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return attrs
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

var (
	bulletSplitRe  = regexp.MustCompile(`\n|;|\|`)
	listMarkerRe   = regexp.MustCompile(`^(?:[-*•]\s*)+`)
	listItemTagRe  = regexp.MustCompile(`(?i)</?(?:li|ul|ol)[^>]*>`)
	jsonListPrefix = "["
)

// ParseBulletList splits the current_bullets column. JSON arrays are decoded
// as-is; anything else is split on newlines, semicolons or pipes. List
// markers and <li> tags are stripped and empty items dropped.
func ParseBulletList(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	decoded := false
	if strings.HasPrefix(text, jsonListPrefix) {
		var items []any
		if err := json.Unmarshal([]byte(text), &items); err == nil {
			decoded = true
			for _, it := range items {
				parts = append(parts, stringify(it))
			}
		}
	}
	if !decoded {
		text = strings.ReplaceAll(text, "</li>", "</li>\n")
		parts = bulletSplitRe.Split(text, -1)
	}

	var bullets []string
	for _, p := range parts {
		p = listItemTagRe.ReplaceAllString(p, "")
		p = strings.TrimSpace(listMarkerRe.ReplaceAllString(strings.TrimSpace(p), ""))
		if p != "" {
			bullets = append(bullets, p)
		}
	}
	return bullets
}

// SortedAttributeNames returns attribute names in a stable order.
func (p ProductInput) SortedAttributeNames() []string {
	names := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
