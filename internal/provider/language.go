package provider

import (
	"slices"
	"strings"

	iso "github.com/barbashov/iso639-3"

	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

// Human-friendly prompt labels, as used by the LLM adapter's chat prompt.
const (
	LabelEnglish        = "English"
	LabelEnglishUS      = "English (US)"
	LabelEnglishUK      = "English (UK)"
	LabelGerman         = "German"
	LabelHebrew         = "Hebrew"
	LabelSpanishLatin   = "Spanish (Neutral Latin American)"
	LabelSpanishSpain   = "Spanish (Spain)"
	LabelSpanishNeutral = "Spanish (Neutral)"
)

var spanishLatinAliases = []string{"ea", "es-419", "es-ea", "es-la", "es-mx", "es-*", "spl"}

// NormalizeTag resolves free-form user input (BCP-47-ish tags, ISO 639
// codes, or bare language names) to a canonical tag and a human-friendly
// prompt label. It prefers the small hand-written table the teacher used
// for prompt phrasing, and falls back to iso639-3 lookup for anything
// else so that any valid language code is still accepted.
func NormalizeTag(input string) (tag string, label string) {
	tag = strings.TrimSpace(input)
	tag = strings.ReplaceAll(tag, "_", "-")
	for strings.Contains(tag, "--") {
		tag = strings.ReplaceAll(tag, "--", "-")
	}
	if tag == "" {
		return "", ""
	}

	parts := strings.Split(tag, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		if len(parts[1]) == 2 {
			parts[1] = strings.ToUpper(parts[1])
		} else if len(parts[1]) == 3 {
			parts[1] = strings.ToLower(parts[1])
		}
	}
	tag = strings.Join(parts, "-")
	lower := strings.ToLower(tag)

	if (strings.HasPrefix(lower, "es-") && lower != "es-es") || slices.Contains(spanishLatinAliases, lower) {
		return tag, LabelSpanishLatin
	}

	switch lower {
	case "en":
		return tag, LabelEnglish
	case "en-us":
		return tag, LabelEnglishUS
	case "en-gb":
		return tag, LabelEnglishUK
	case "de":
		return tag, LabelGerman
	case "he", "iw":
		return tag, LabelHebrew
	case "es":
		return tag, LabelSpanishNeutral
	case "spa":
		return tag, LabelSpanishNeutral
	case "es-es":
		return tag, LabelSpanishSpain
	}

	if l := iso.FromAnyCode(parts[0]); l != nil && l.Name != "" {
		return tag, l.Name
	}
	return tag, tag
}

func NormalizeLabel(input string) string {
	_, label := NormalizeTag(input)
	if label == "" {
		label = input
	}
	return label
}

// ClosedLanguage maps a free-form tag to the pipeline's closed Language
// set, via iso639-3 when the hand-written aliases above don't match.
func ClosedLanguage(input string) srt.Language {
	tag, _ := NormalizeTag(input)
	lower := strings.ToLower(tag)
	switch {
	case strings.HasPrefix(lower, "en"):
		return srt.LanguageEnglish
	case strings.HasPrefix(lower, "de"):
		return srt.LanguageGerman
	case lower == "he", lower == "iw":
		return srt.LanguageHebrew
	}
	if l := iso.FromAnyCode(lower); l != nil {
		switch l.Part1 {
		case "en":
			return srt.LanguageEnglish
		case "de":
			return srt.LanguageGerman
		case "he":
			return srt.LanguageHebrew
		}
	}
	return srt.LanguageUnknown
}
