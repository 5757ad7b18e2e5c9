// Package rules holds the declarative catalog of hard content constraints.
//
// A Catalog is plain data: limits, banned terms with their replacement
// synonyms, and claim verbs. It is built once, validated once, and then
// passed by value to everything that needs it.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalidCatalog is returned by Validate when a catalog cannot be used.
var ErrInvalidCatalog = errors.New("invalid rule catalog")

// BannedTerm is a forbidden term and the synonyms a repair may substitute.
type BannedTerm struct {
	Term     string   `mapstructure:"term" json:"term" yaml:"term"`
	Synonyms []string `mapstructure:"synonyms" json:"synonyms" yaml:"synonyms"`
}

// Catalog is the full set of hard rules content is judged against.
type Catalog struct {
	BulletCount             int          `mapstructure:"bullet_count" json:"bullet_count"`
	BulletMaxChars          int          `mapstructure:"bullet_max_chars" json:"bullet_max_chars"`
	TitleMaxChars           int          `mapstructure:"title_max_chars" json:"title_max_chars"`
	DescriptionMinWords     int          `mapstructure:"description_min_words" json:"description_min_words"`
	DescriptionMaxWords     int          `mapstructure:"description_max_words" json:"description_max_words"`
	MetaTitleMaxChars       int          `mapstructure:"meta_title_max_chars" json:"meta_title_max_chars"`
	MetaDescriptionMaxChars int          `mapstructure:"meta_description_max_chars" json:"meta_description_max_chars"`
	MinTruncateChars        int          `mapstructure:"min_truncate_chars" json:"min_truncate_chars"`
	Banned                  []BannedTerm `mapstructure:"banned" json:"banned"`
	ClaimVerbs              []string     `mapstructure:"claim_verbs" json:"claim_verbs"`
	// Language is an optional ISO 639-1 code descriptions must be written in.
	Language string `mapstructure:"language" json:"language"`
}

// Default returns the reference marketplace policy.
func Default() Catalog {
	return Catalog{
		BulletCount:             8,
		BulletMaxChars:          85,
		TitleMaxChars:           150,
		DescriptionMinWords:     120,
		DescriptionMaxWords:     160,
		MetaTitleMaxChars:       70,
		MetaDescriptionMaxChars: 160,
		MinTruncateChars:        20,
		Banned: []BannedTerm{
			{Term: "perfect", Synonyms: []string{"ideal", "well-suited", "great"}},
			{Term: "premium", Synonyms: []string{"high-quality", "quality", "well-made"}},
			{Term: "cosplay", Synonyms: []string{"costume", "dress-up"}},
			{Term: "weapon", Synonyms: []string{"tool", "accessory"}},
			{Term: "knife", Synonyms: []string{"blade", "cutter"}},
			{Term: "uv", Synonyms: []string{"sunlight", "light"}},
			{Term: "exceptional", Synonyms: []string{"great", "reliable"}},
			{Term: "outstanding", Synonyms: []string{"great", "notable"}},
			{Term: "remarkable", Synonyms: []string{"reliable", "notable"}},
			{Term: "superior", Synonyms: []string{"durable", "dependable"}},
			{Term: "excellent", Synonyms: []string{"efficient", "great"}},
			{Term: "amazing", Synonyms: []string{"innovative", "impressive"}},
			{Term: "fantastic", Synonyms: []string{"quality", "great"}},
			{Term: "incredible", Synonyms: []string{"effective", "impressive"}},
			{Term: "wonderful", Synonyms: []string{"dependable", "pleasant"}},
			{Term: "brilliant", Synonyms: []string{"sturdy", "bright"}},
			{Term: "magnificent", Synonyms: []string{"robust", "striking"}},
			{Term: "spectacular", Synonyms: []string{"consistent", "striking"}},
			{Term: "extraordinary", Synonyms: []string{"trustworthy", "notable"}},
			{Term: "phenomenal", Synonyms: []string{"reliable", "notable"}},
		},
		ClaimVerbs: []string{"cure", "treat", "diagnose", "prevent", "heal", "remedy"},
	}
}

// Validate reports configuration mistakes. It is meant to run once at setup,
// before any refinement is attempted.
func (c Catalog) Validate() error {
	var problems []string

	if c.BulletCount <= 0 {
		problems = append(problems, "bullet_count must be positive")
	}
	if c.BulletMaxChars <= 0 {
		problems = append(problems, "bullet_max_chars must be positive")
	}
	if c.TitleMaxChars <= 0 {
		problems = append(problems, "title_max_chars must be positive")
	}
	if c.MetaTitleMaxChars <= 0 {
		problems = append(problems, "meta_title_max_chars must be positive")
	}
	if c.MetaDescriptionMaxChars <= 0 {
		problems = append(problems, "meta_description_max_chars must be positive")
	}
	if c.DescriptionMinWords <= 0 || c.DescriptionMaxWords < c.DescriptionMinWords {
		problems = append(problems, fmt.Sprintf("description word range [%d, %d] is empty", c.DescriptionMinWords, c.DescriptionMaxWords))
	}
	if c.MinTruncateChars < 0 {
		problems = append(problems, "min_truncate_chars must not be negative")
	}

	seen := make(map[string]bool, len(c.Banned))
	for _, b := range c.Banned {
		term := strings.ToLower(strings.TrimSpace(b.Term))
		if term == "" {
			problems = append(problems, "banned term must not be empty")
			continue
		}
		if seen[term] {
			problems = append(problems, fmt.Sprintf("banned term %q listed twice", term))
		}
		seen[term] = true
	}
	for _, v := range c.ClaimVerbs {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, "claim verb must not be empty")
		}
	}

	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			problems = append(problems, fmt.Sprintf("language %q is not a valid language tag", c.Language))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

// WithTerms returns a copy of c with extra banned terms merged in. Synonyms
// for a term that is already banned are appended after the existing ones.
func (c Catalog) WithTerms(extra []BannedTerm) Catalog {
	out := c
	out.Banned = make([]BannedTerm, 0, len(c.Banned)+len(extra))
	index := make(map[string]int, len(c.Banned))

	add := func(b BannedTerm) {
		key := strings.ToLower(strings.TrimSpace(b.Term))
		if key == "" {
			return
		}
		if i, ok := index[key]; ok {
			out.Banned[i].Synonyms = appendUnique(out.Banned[i].Synonyms, b.Synonyms...)
			return
		}
		index[key] = len(out.Banned)
		out.Banned = append(out.Banned, BannedTerm{Term: key, Synonyms: appendUnique(nil, b.Synonyms...)})
	}

	for _, b := range c.Banned {
		add(b)
	}
	for _, b := range extra {
		add(b)
	}
	out.ClaimVerbs = append([]string(nil), c.ClaimVerbs...)
	return out
}

// Terms returns the banned terms, lower-cased and sorted.
func (c Catalog) Terms() []string {
	terms := make([]string, 0, len(c.Banned))
	for _, b := range c.Banned {
		terms = append(terms, strings.ToLower(strings.TrimSpace(b.Term)))
	}
	sort.Strings(terms)
	return terms
}

// Synonyms returns the registered synonyms for term, or nil.
func (c Catalog) Synonyms(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, b := range c.Banned {
		if strings.EqualFold(strings.TrimSpace(b.Term), term) {
			return b.Synonyms
		}
	}
	return nil
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, it) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}
