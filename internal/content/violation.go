package content

import (
	"fmt"

	"github.com/valpere/listingfix/internal"
)

// Kind identifies the rule a Violation breaks.
type Kind string

const (
	KindBannedTerm            Kind = "banned_term"
	KindBulletCount           Kind = "bullet_count"
	KindBulletLength          Kind = "bullet_length"
	KindTitleLength           Kind = "title_length"
	KindBrandMissing          Kind = "brand_missing"
	KindDescriptionWordCount  Kind = "description_word_count"
	KindMetaTitleLength       Kind = "meta_title_length"
	KindMetaDescriptionLength Kind = "meta_description_length"
	KindKeywordMissing        Kind = "keyword_missing"
	KindMedicalClaim          Kind = "medical_claim"
	KindLanguage              Kind = "language"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindBannedTerm,
	KindBulletCount,
	KindBulletLength,
	KindTitleLength,
	KindBrandMissing,
	KindDescriptionWordCount,
	KindMetaTitleLength,
	KindMetaDescriptionLength,
	KindKeywordMissing,
	KindMedicalClaim,
	KindLanguage,
}

// Field names a Candidate field.
type Field string

const (
	FieldTitle           Field = "title"
	FieldBullets         Field = "bullets"
	FieldDescription     Field = "description"
	FieldMetaTitle       Field = "meta_title"
	FieldMetaDescription Field = "meta_description"
)

// Fields lists the candidate fields in declaration order.
var Fields = []Field{FieldTitle, FieldBullets, FieldDescription, FieldMetaTitle, FieldMetaDescription}

// Violation is one failed rule on one field.
type Violation struct {
	Kind  Kind
	Field Field
	// Item is the 1-based bullet number for per-bullet rules, 0 otherwise.
	Item int
	// Term is the offending or missing text: a banned term, a claim verb,
	// the brand, a keyword value or the required language code.
	Term string
	// Found is the detected language for language violations.
	Found string
	// Measured is the count the rule was checked against; Min and Max are
	// its bounds (Min is 0 for upper-bound-only rules).
	Measured int
	Min      int
	Max      int
}

// Detail is the human-readable explanation used in generator feedback and
// in the serialized descriptor.
func (v Violation) Detail() string {
	prefix := ""
	if v.Item > 0 {
		prefix = fmt.Sprintf("bullet %d ", v.Item)
	}

	switch v.Kind {
	case KindBannedTerm:
		return fmt.Sprintf("%scontains banned term %q", prefix, v.Term)
	case KindMedicalClaim:
		return fmt.Sprintf("%scontains medical claim %q", prefix, v.Term)
	case KindBulletCount:
		return fmt.Sprintf("has %d bullets, need exactly %d", v.Measured, v.Max)
	case KindBulletLength, KindTitleLength, KindMetaTitleLength, KindMetaDescriptionLength:
		return fmt.Sprintf("%shas %d characters, max %d", prefix, v.Measured, v.Max)
	case KindDescriptionWordCount:
		return fmt.Sprintf("has %d words, need %d-%d", v.Measured, v.Min, v.Max)
	case KindBrandMissing:
		return fmt.Sprintf("missing brand %q", v.Term)
	case KindKeywordMissing:
		return fmt.Sprintf("missing keyword %q", v.Term)
	case KindLanguage:
		return fmt.Sprintf("written in %q, need %q", v.Found, v.Term)
	}
	return string(v.Kind)
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Detail())
}

// Descriptor returns the serializable form of v.
func (v Violation) Descriptor() internal.ViolationDescriptor {
	return internal.ViolationDescriptor{
		Kind:   string(v.Kind),
		Field:  string(v.Field),
		Detail: v.Detail(),
	}
}

// CountByKind tallies violations per kind.
func CountByKind(vs []Violation) map[Kind]int {
	counts := make(map[Kind]int)
	for _, v := range vs {
		counts[v.Kind]++
	}
	return counts
}
