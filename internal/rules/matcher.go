package rules

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// claimInflection splits a claim verb into a stem and the suffixes it is
// matched with: cure, cures, cured, curing; treat, treats, treated,
// treating; remedy, remedies, remedied, remedying.
func claimInflection(verb string) (stem, suffix string) {
	switch {
	case strings.HasSuffix(verb, "e"):
		return verb[:len(verb)-1], `(?:e|es|ed|ing)`
	case strings.HasSuffix(verb, "y") && len(verb) > 2 && !strings.ContainsRune("aeiou", rune(verb[len(verb)-2])):
		return verb[:len(verb)-1], `(?:y|ies|ied|ying)`
	default:
		return verb, `(?:s|es|ed|ing)?`
	}
}

type termPattern struct {
	term string
	re   *regexp.Regexp
}

// Matcher finds banned terms and claim verbs in text. Matching is lexical and
// case-insensitive, anchored on word boundaries. It does not try to tell a
// benign "prevents tangles" from a medical "prevents disease"; both match.
type Matcher struct {
	banned []termPattern
	claims []termPattern
}

// NewMatcher compiles the catalog's terms. Patterns are kept sorted by term
// so results come out in a stable order.
func NewMatcher(c Catalog) *Matcher {
	m := &Matcher{}
	for _, b := range c.Banned {
		term := strings.ToLower(strings.TrimSpace(b.Term))
		if term == "" {
			continue
		}
		m.banned = append(m.banned, termPattern{term: term, re: compileTerm(term, "")})
	}
	for _, v := range c.ClaimVerbs {
		verb := strings.ToLower(strings.TrimSpace(v))
		if verb == "" {
			continue
		}
		stem, suffix := claimInflection(verb)
		m.claims = append(m.claims, termPattern{term: verb, re: compileTerm(stem, suffix)})
	}
	sort.Slice(m.banned, func(i, j int) bool { return m.banned[i].term < m.banned[j].term })
	sort.Slice(m.claims, func(i, j int) bool { return m.claims[i].term < m.claims[j].term })
	return m
}

func compileTerm(term, suffix string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?i)")
	first, _ := utf8.DecodeRuneInString(term)
	if isWordRune(first) {
		sb.WriteString(`\b`)
	}
	sb.WriteString(regexp.QuoteMeta(term))
	sb.WriteString(suffix)
	last, _ := utf8.DecodeLastRuneInString(term)
	if isWordRune(last) {
		sb.WriteString(`\b`)
	}
	return regexp.MustCompile(sb.String())
}

// isWordRune mirrors RE2's ASCII-only \b definition.
func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

// BannedIn returns the distinct banned terms present in text.
func (m *Matcher) BannedIn(text string) []string {
	return find(m.banned, text)
}

// ClaimsIn returns the distinct claim verbs present in text.
func (m *Matcher) ClaimsIn(text string) []string {
	return find(m.claims, text)
}

// HasBanned reports whether text contains any banned term.
func (m *Matcher) HasBanned(text string) bool {
	return matchAny(m.banned, text)
}

// HasClaim reports whether text contains any claim verb.
func (m *Matcher) HasClaim(text string) bool {
	return matchAny(m.claims, text)
}

// BannedPattern returns the compiled pattern for a banned term, or nil.
func (m *Matcher) BannedPattern(term string) *regexp.Regexp {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, p := range m.banned {
		if p.term == term {
			return p.re
		}
	}
	return nil
}

func find(patterns []termPattern, text string) []string {
	var found []string
	for _, p := range patterns {
		if p.re.MatchString(text) {
			found = append(found, p.term)
		}
	}
	return found
}

func matchAny(patterns []termPattern, text string) bool {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}
