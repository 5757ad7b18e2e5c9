package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/listingfix/internal"
)

// ErrMalformedCandidate is returned when generator output cannot be read as
// a candidate record: it is not a JSON object or a required field is absent.
var ErrMalformedCandidate = errors.New("malformed candidate")

type rawCandidate struct {
	Title           *string         `json:"title"`
	Bullets         json.RawMessage `json:"bullets"`
	Description     *string         `json:"description"`
	MetaTitle       *string         `json:"meta_title"`
	MetaDescription *string         `json:"meta_description"`
}

// ParseCandidate decodes a generator's JSON object into a Candidate.
// Bullets may be a JSON array or a single string of <li> items or lines.
// Empty values are fine (they are violations, not parse errors); a missing
// field is not.
func ParseCandidate(raw []byte) (Candidate, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Candidate{}, fmt.Errorf("%w: empty output", ErrMalformedCandidate)
	}

	var rc rawCandidate
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrMalformedCandidate, err)
	}

	var missing []string
	if rc.Title == nil {
		missing = append(missing, "title")
	}
	if len(rc.Bullets) == 0 || string(rc.Bullets) == "null" {
		missing = append(missing, "bullets")
	}
	if rc.Description == nil {
		missing = append(missing, "description")
	}
	if rc.MetaTitle == nil {
		missing = append(missing, "meta_title")
	}
	if rc.MetaDescription == nil {
		missing = append(missing, "meta_description")
	}
	if len(missing) > 0 {
		return Candidate{}, fmt.Errorf("%w: missing %s", ErrMalformedCandidate, strings.Join(missing, ", "))
	}

	bullets, err := parseBullets(rc.Bullets)
	if err != nil {
		return Candidate{}, err
	}

	return Candidate{
		Title:           strings.TrimSpace(*rc.Title),
		Bullets:         bullets,
		Description:     strings.TrimSpace(*rc.Description),
		MetaTitle:       strings.TrimSpace(*rc.MetaTitle),
		MetaDescription: strings.TrimSpace(*rc.MetaDescription),
	}, nil
}

func parseBullets(raw json.RawMessage) ([]string, error) {
	switch raw[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: bullets: %v", ErrMalformedCandidate, err)
		}
		return internal.ParseBulletList(string(raw)), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: bullets: %v", ErrMalformedCandidate, err)
		}
		return internal.ParseBulletList(s), nil
	}
	return nil, fmt.Errorf("%w: bullets must be a list or a string", ErrMalformedCandidate)
}
