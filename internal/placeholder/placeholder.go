// Package placeholder shields spans of text from rewriting. Protected spans
// (HTML tags plus any caller-supplied terms such as a brand name) are
// replaced with numbered markers that no banned-term or claim pattern can
// match; Restore puts the originals back afterwards.
package placeholder

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Markers are wrapped in private-use runes so no word pattern can match them.
const (
	markerOpen  = "\uE000"
	markerClose = "\uE001"
)

var (
	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`<[^>]+>`)

	// marker reference in rewritten text
	rePlaceholder = regexp.MustCompile(markerOpen + `(\d+)` + markerClose)
)

// Marker returns the marker text for index i.
func Marker(i int) string {
	return markerOpen + strconv.Itoa(i) + markerClose
}

// Protect replaces HTML tags and every case-insensitive occurrence of terms
// with numbered markers, in the order they appear in text. Everything is
// matched in a single pass with longer terms tried first, so "TechBrand Pro"
// wins over "TechBrand" and a marker is never matched again. It returns the
// modified text and the captured originals for Restore.
func Protect(text string, terms ...string) (string, []string) {
	sorted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	alternatives := []string{reHTMLTag.String()}
	for _, t := range sorted {
		alternatives = append(alternatives, "(?i:"+regexp.QuoteMeta(t)+")")
	}
	re := regexp.MustCompile(strings.Join(alternatives, "|"))

	var markers []string
	text = re.ReplaceAllStringFunc(text, func(match string) string {
		id := Marker(len(markers))
		markers = append(markers, match)
		return id
	})
	return text, markers
}

// Restore substitutes markers in text back with the originals captured by
// Protect. Markers missing from text are ignored; unrecognised indices are
// left as-is.
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// Validate returns the indices of markers created by Protect that are no
// longer present in text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, Marker(i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
