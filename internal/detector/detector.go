// Package detector identifies the natural language of a text.
package detector

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// commonLanguages are always candidates so a detector built for one target
// language can still tell when text is written in something else.
var commonLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Ukrainian,
	lingua.Russian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over every language lingua knows. It is slow to
// build and memory hungry; prefer NewFor when the target is known.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewFor builds a detector over the common marketplace languages plus the
// given language codes.
func NewFor(codes ...string) (*Detector, error) {
	langs := append([]lingua.Language(nil), commonLanguages...)
	for _, code := range codes {
		lang, err := ParseCode(code)
		if err != nil {
			return nil, err
		}
		if !contains(langs, lang) {
			langs = append(langs, lang)
		}
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: detector}, nil
}

// ParseCode resolves a BCP 47 or ISO 639 code ("en", "en-US", "eng") to a
// lingua language.
func ParseCode(code string) (lingua.Language, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return lingua.Unknown, fmt.Errorf("language %q: %w", code, err)
	}
	base, _ := tag.Base()
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.IsoCode639_1().String(), base.String()) {
			return lang, nil
		}
	}
	return lingua.Unknown, fmt.Errorf("language %q is not supported by the detector", code)
}

func contains(langs []lingua.Language, lang lingua.Language) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
